package api

// SampleStatusComplete is the status of a sample whose analysis has finished.
const SampleStatusComplete = "Complete"

// UnindexedReadsProject is the per-account project holding undetermined reads.
const UnindexedReadsProject = "Unindexed Reads"

// User identifies a BaseSpace account.
type User struct {
	ID   string `json:"Id" yaml:"id"`
	Name string `json:"Name" yaml:"name"`
}

// Project is a BaseSpace project as seen by one account.
type Project struct {
	ID          string `json:"Id" yaml:"id"`
	Name        string `json:"Name" yaml:"name"`
	UserOwnedBy User   `json:"UserOwnedBy" yaml:"user_owned_by"`
	DateCreated string `json:"DateCreated" yaml:"date_created"`

	// UserFetchedByID is the account whose token listed the project. It is
	// filled in client-side and decides which token later requests use.
	UserFetchedByID string `json:"UserFetchedById,omitempty" yaml:"user_fetched_by_id,omitempty"`
}

// OwnedByFetcher reports whether the listing account also owns the project.
func (p Project) OwnedByFetcher() bool {
	return p.UserFetchedByID != "" && p.UserFetchedByID == p.UserOwnedBy.ID
}

// Sample is a biological sample inside a project.
type Sample struct {
	ID             string `json:"Id" yaml:"id"`
	Name           string `json:"Name" yaml:"name"`
	Status         string `json:"Status" yaml:"status"`
	ExperimentName string `json:"ExperimentName,omitempty" yaml:"experiment_name,omitempty"`
	DateCreated    string `json:"DateCreated,omitempty" yaml:"date_created,omitempty"`
}

// Complete reports whether the sample finished processing.
func (s Sample) Complete() bool {
	return s.Status == SampleStatusComplete
}

// DataFile is a downloadable file attached to a sample.
type DataFile struct {
	ID   string `json:"Id" yaml:"id"`
	Name string `json:"Name" yaml:"name"`
	Size int64  `json:"Size" yaml:"size"`
}

type envelope[T any] struct {
	Response T `json:"Response"`
}

type itemList[T any] struct {
	Items          []T `json:"Items"`
	DisplayedCount int `json:"DisplayedCount"`
	TotalCount     int `json:"TotalCount"`
	Offset         int `json:"Offset"`
	Limit          int `json:"Limit"`
}

// ErrorResponse is the error body BaseSpace returns alongside 4xx/5xx statuses.
type ErrorResponse struct {
	ResponseStatus struct {
		ErrorCode string `json:"ErrorCode"`
		Message   string `json:"Message"`
	} `json:"ResponseStatus"`
}
