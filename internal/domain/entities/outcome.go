package entities

// Step names a state in the per-repository remediation state machine.
// A repository advances strictly forward; a failure records the step it
// could not complete and leaves the previous steps intact.
type Step string

const (
	StepNew              Step = "NEW"
	StepForkEnsured      Step = "FORK_ENSURED"
	StepBranchCreated    Step = "BRANCH_CREATED"
	StepFilesCommitted   Step = "FILES_COMMITTED"
	StepPROpened         Step = "PR_OPENED"
	StepNoChange         Step = "NO_CHANGE"
	StepSkippedDuplicate Step = "SKIPPED_DUPLICATE"
)

// RepoOutcome is the terminal result of remediating one repository.
type RepoOutcome struct {
	RepoFullName string
	Mode         RemediationMode
	Step         Step
	BranchName   string
	PRNumber     int
	PRURL        string

	// FailedStep and Reason are set when the repository did not reach a
	// terminal success state. The run continues with other repositories.
	FailedStep Step
	Reason     string
}

// Failed reports whether the repository stopped before a terminal state.
func (o RepoOutcome) Failed() bool {
	return o.FailedStep != ""
}

// RunSummary aggregates per-repository outcomes of a remediation run.
type RunSummary struct {
	Outcomes []RepoOutcome
}

// Counts returns the number of opened, skipped, unchanged and failed repos.
func (s RunSummary) Counts() (opened, skipped, unchanged, failed int) {
	for _, o := range s.Outcomes {
		switch {
		case o.Failed():
			failed++
		case o.Step == StepPROpened:
			opened++
		case o.Step == StepSkippedDuplicate:
			skipped++
		case o.Step == StepNoChange:
			unchanged++
		}
	}
	return opened, skipped, unchanged, failed
}
