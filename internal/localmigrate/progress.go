package localmigrate

// ProgressChannel adapts progress callbacks onto a buffered channel. Sends
// never block: when the buffer is full the report is dropped, except a
// final report which replaces the oldest queued one. Call the returned
// close function after MigrateAll returns.
func ProgressChannel(buffer int) (ProgressFunc, <-chan Progress, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Progress, buffer)

	send := func(p Progress) {
		select {
		case ch <- p:
			return
		default:
		}
		if p.Status == StatusInProgress {
			return
		}
		// make room for the final report
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}

	return send, ch, func() { close(ch) }
}
