package notify

import "errors"

var (
	ErrPublishFailed        = errors.New("failed to publish notification")
	ErrPermanentFailure     = errors.New("permanent notification failure")
	ErrInvalidConfiguration = errors.New("invalid notifier configuration")
	ErrInvalidSignature     = errors.New("invalid notification signature")
)

// Permanent marks err as not worth retrying. WithRetry and WebhookPublisher
// stop immediately on such errors.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanentFailure, err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure)
}
