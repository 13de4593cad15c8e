package remotestore

import "tasksync/internal/model"

// statusLabels is the two-way translation between internal status values
// and the remote board's status-column labels. Defaults grounded on
// spec.md §4.C; unknown remote labels fall back to pending.
var statusLabels = map[model.Status]string{
	model.StatusPending:    "Not Started",
	model.StatusInProgress: "Working on it",
	model.StatusReview:     "Under Review",
	model.StatusDone:       "Done",
	model.StatusBlocked:    "Stuck",
	model.StatusCancelled:  "Cancelled",
	model.StatusDeferred:   "Deferred",
}

var labelStatus = invertStatus(statusLabels)

func invertStatus(m map[model.Status]string) map[string]model.Status {
	out := make(map[string]model.Status, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func statusToLabel(s model.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[model.StatusPending]
}

func labelToStatus(label string) model.Status {
	if s, ok := labelStatus[label]; ok {
		return s
	}
	return model.StatusPending
}

// priorityLabels mirrors statusLabels for the priority column.
var priorityLabels = map[model.Priority]string{
	model.PriorityLow:      "Low",
	model.PriorityMedium:   "Medium",
	model.PriorityHigh:     "High",
	model.PriorityCritical: "Critical",
}

var labelPriority = invertPriority(priorityLabels)

func invertPriority(m map[model.Priority]string) map[string]model.Priority {
	out := make(map[string]model.Priority, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func priorityToLabel(p model.Priority) string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return priorityLabels[model.PriorityMedium]
}

func labelToPriority(label string) model.Priority {
	if p, ok := labelPriority[label]; ok {
		return p
	}
	return model.PriorityMedium
}
