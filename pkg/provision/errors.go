package provision

import (
	"errors"
	"fmt"
)

// ErrProvisioningStep matches every *StepError.
var ErrProvisioningStep = errors.New("provision: step failed")

// Step names reported in StepError.
const (
	StepRegister       = "register"
	StepCreateDatabase = "create_database"
	StepActivate       = "activate"
	StepMigrate        = "migrate"
	StepSeed           = "seed"
	StepCreateAdmin    = "create_admin"
	StepAssignRole     = "assign_role"
	StepCreateToken    = "create_token"
	StepSendInvitation = "send_invitation"
	StepDeactivate     = "deactivate"
)

// StepError reports the failed step, its cause and any rollback failure.
type StepError struct {
	Step     string
	Err      error
	Rollback error
}

func (e *StepError) Error() string {
	if e.Rollback != nil {
		return fmt.Sprintf("provision: step %s: %v (rollback: %v)", e.Step, e.Err, e.Rollback)
	}
	return fmt.Sprintf("provision: step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	errs := []error{ErrProvisioningStep, e.Err}
	if e.Rollback != nil {
		errs = append(errs, e.Rollback)
	}
	return errs
}
