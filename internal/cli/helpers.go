package cli

import "errors"

// joinClose folds a deferred Close error into the command's error.
func joinClose(err, closeErr error) error {
	if closeErr == nil {
		return err
	}
	return errors.Join(err, closeErr)
}
