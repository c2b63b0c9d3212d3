package scheduler

// GetItemStatusMap returns a copy of the internal item status map.
// This is exported for testing purposes only.
func (s *Scheduler) GetItemStatusMap() map[string]ItemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statusMap := make(map[string]ItemStatus, len(s.itemStatus))
	for k, v := range s.itemStatus {
		statusMap[k.String()] = v
	}
	return statusMap
}
