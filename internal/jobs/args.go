package jobs

// ListJobsArgs takes no parameters
type ListJobsArgs struct{}

// GetJobDetailsArgs contains parameters for fetching job definitions
type GetJobDetailsArgs struct {
	JobIDs []int64 `json:"job_ids" jsonschema:"Job IDs to fetch (1-50)" validate:"required,min=1,max=50,dive,gt=0"`
}

// GetJobRunsArgs contains parameters for fetching recent runs
type GetJobRunsArgs struct {
	JobIDs []int64 `json:"job_ids" jsonschema:"Job IDs whose runs to fetch (1-50)" validate:"required,min=1,max=50,dive,gt=0"`
	Amount *int    `json:"amount,omitempty" jsonschema:"Most recent runs to return per job (default 1)" validate:"omitempty,min=1"`
}
