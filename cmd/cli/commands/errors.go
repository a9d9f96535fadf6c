package commands

import (
	"fmt"

	"github.com/jakechorley/carpool/pkg/core/apperrors"
)

// DescribeError renders an engine error with its machine-readable code so
// CLI output can be matched by scripts
func DescribeError(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok {
		return err.Error()
	}
	msg := fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message)
	if appErr.Shortfall > 0 {
		msg += fmt.Sprintf(" (remove %d assignment(s) first)", appErr.Shortfall)
	}
	return msg
}
