package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorInvalidReviewStatus is returned when a review update names a status
// outside the allowed set. Such requests fail closed: no partial update.
var ErrorInvalidReviewStatus = errors.New("invalid review status")
