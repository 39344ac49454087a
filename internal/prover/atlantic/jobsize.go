package atlantic

// JobSize is Atlantic's declared capacity class for a proving job.
type JobSize string

const (
	JobSizeXS JobSize = "XS"
	JobSizeS  JobSize = "S"
	JobSizeM  JobSize = "M"
	JobSizeL  JobSize = "L"
)

// DeclaredJobSize buckets a PIE's step count into the size class the
// atlantic-query endpoint expects, so the scheduler can right-size the
// worker it hands the job to.
func DeclaredJobSize(nSteps uint64) JobSize {
	switch {
	case nSteps <= 6_500_000:
		return JobSizeXS
	case nSteps <= 13_000_000:
		return JobSizeS
	case nSteps <= 30_000_000:
		return JobSizeM
	default:
		return JobSizeL
	}
}
