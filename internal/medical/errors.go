package medical

import "errors"

var (
	// ErrInvalidReport is returned when a payload cannot be used as a MedicalReport.
	ErrInvalidReport = errors.New("medical: invalid report")

	// ErrInvalidHospital is returned when a payload cannot be used as a HospitalRecommendation.
	ErrInvalidHospital = errors.New("medical: invalid hospital recommendation")

	// ErrInvalidMessage is returned for messages whose type and content disagree.
	ErrInvalidMessage = errors.New("medical: invalid message")

	// ErrAlreadyResolved is returned when resolving an ai message twice.
	ErrAlreadyResolved = errors.New("medical: message is not pending")
)
