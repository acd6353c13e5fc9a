package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// APIErrorCode returns the AWS error code wrapped in err, or "" if err did
// not come from an AWS API
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err says the snapshot does not exist
func IsNotFound(err error) bool {
	return APIErrorCode(err) == "InvalidSnapshot.NotFound"
}

// IsLimitExceeded reports whether err is one of the snapshot quota or rate
// errors after which the action should be retried on a later run
func IsLimitExceeded(err error) bool {
	code := APIErrorCode(err)
	return code == "ResourceLimitExceeded" ||
		code == "SnapshotLimitExceeded" ||
		strings.HasSuffix(code, "RateExceeded")
}

// IsInUse reports whether err says the snapshot is still referenced, for
// example by an AMI
func IsInUse(err error) bool {
	return APIErrorCode(err) == "InvalidSnapshot.InUse"
}
