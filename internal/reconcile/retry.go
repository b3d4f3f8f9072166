package reconcile

// withAttempts runs op up to attempts times, re-running only while retryable
// reports the returned error as worth another attempt. The last error is
// returned unwrapped so callers can classify it.
func withAttempts(attempts int, retryable func(error) bool, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = op()
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}
