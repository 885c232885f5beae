package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"basespace-dl/internal/api"
	"basespace-dl/internal/format"
	"basespace-dl/internal/ledger"
)

// writeOutput renders payload with formatter, or calls plain when no machine
// readable format was requested.
func writeOutput(w io.Writer, formatter format.Formatter, payload any, plain func(io.Writer) error) error {
	if formatter != nil {
		return formatter.Write(w, payload)
	}
	return plain(w)
}

func writePlain(w io.Writer, layout string, args ...any) error {
	_, err := fmt.Fprintf(w, layout, args...)
	return err
}

func writeProjects(w io.Writer, projects []api.Project, long bool) error {
	for _, p := range projects {
		var err error
		if long {
			err = writePlain(w, "%s,%s,%s,%s\n", p.Name, p.UserOwnedBy.ID, p.UserOwnedBy.Name, format.DatePrefix(p.DateCreated))
		} else {
			err = writePlain(w, "%s\n", p.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFiles(w io.Writer, files []api.DataFile, long bool) error {
	if !long {
		for _, f := range files {
			if err := writePlain(w, "%s\n", f.Name); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range files {
		if _, err := fmt.Fprintf(tw, "%4s\t%s\n", format.Bytes(f.Size), f.Name); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeDownloads(w io.Writer, downloads []ledger.Download) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOWNLOADED\tPROJECT\tSIZE\tPATH")
	for _, d := range downloads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			d.DownloadedAt.Local().Format("2006-01-02 15:04"), d.ProjectName, format.Bytes(d.SizeBytes), d.Path)
	}
	return tw.Flush()
}

func projectLabel(p api.Project) string {
	return fmt.Sprintf("name = %q, dateCreated = %q", p.UserOwnedBy.Name, p.DateCreated)
}

func sampleLabel(s api.Sample) string {
	return fmt.Sprintf("name = %q, dateCreated = %q", s.Name, s.DateCreated)
}
