package timeline

import "errors"

var (
	ErrInvalidLeadKind = errors.New("invalid lead event kind")
	ErrZeroStartDate   = errors.New("start date is required")
	ErrFailedToBuild   = errors.New("failed to build subscription timeline")
)
