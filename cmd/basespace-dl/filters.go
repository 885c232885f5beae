package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"basespace-dl/internal/api"
)

// filterByPattern keeps files whose name matches the regular expression.
func filterByPattern(files []api.DataFile, pattern string) ([]api.DataFile, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern. %w", err)
	}
	out := make([]api.DataFile, 0, len(files))
	for _, f := range files {
		if re.MatchString(f.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}

// readFileList reads one file name per line. Blank lines are ignored.
func readFileList(r io.Reader) (map[string]struct{}, error) {
	names := map[string]struct{}{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSuffix(scanner.Text(), "\r")
		if name == "" {
			continue
		}
		names[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return names, nil
}

func filterBySelection(files []api.DataFile, names map[string]struct{}) []api.DataFile {
	out := make([]api.DataFile, 0, len(files))
	for _, f := range files {
		if _, ok := names[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// partitionSamples splits samples into complete and still-processing ones.
func partitionSamples(samples []api.Sample) (complete, unfinished []api.Sample) {
	for _, s := range samples {
		if s.Complete() {
			complete = append(complete, s)
		} else {
			unfinished = append(unfinished, s)
		}
	}
	return complete, unfinished
}

func matchingProjects(projects []api.Project, name string) []api.Project {
	var out []api.Project
	for _, p := range projects {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

func projectNames(projects []api.Project) []string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names
}

// unindexedReadsFor finds the "Unindexed Reads" project of the account that
// fetched project.
func unindexedReadsFor(projects []api.Project, project api.Project) (api.Project, bool) {
	for _, p := range projects {
		if p.Name == api.UnindexedReadsProject && p.UserFetchedByID == project.UserFetchedByID {
			return p, true
		}
	}
	return api.Project{}, false
}
