package pod

import "errors"

// Sentinel errors for proposal operations. All of them are raised by local
// validation before any relay or chain call is attempted.
var (
	// ErrNotAMember is returned when a signer fails the pod membership check.
	ErrNotAMember = errors.New("not a member of the pod")

	// ErrAlreadyApproved is returned on a duplicate approval by the same signer.
	ErrAlreadyApproved = errors.New("already approved")

	// ErrAlreadyRejected is returned on a duplicate rejection by the same signer.
	ErrAlreadyRejected = errors.New("already rejected")

	// ErrInsufficientVotes is returned when execution is attempted below the
	// confirmation threshold.
	ErrInsufficientVotes = errors.New("not enough votes to execute")
)
