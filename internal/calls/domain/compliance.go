package domain

import (
	"time"

	leaddomain "leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/phone"
)

// Calling window bounds, inclusive, in the lead's local time.
const (
	EarliestCallHour = 8
	LatestCallHour   = 21
)

// Requirement names reported in compliance results.
const (
	RequirementOptInSignal   = "opt_in_signal"
	RequirementNoUnsubscribe = "no_unsubscribe"
	RequirementValidPhone    = "valid_phone"
	RequirementCallWindow    = "call_time_window"
)

// RequirementResult is the verdict on one compliance requirement.
type RequirementResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ComplianceResult is the full verdict. All requirements are always
// evaluated so callers see every failure at once, not just the first.
type ComplianceResult struct {
	Compliant    bool                `json:"compliant"`
	Requirements []RequirementResult `json:"requirements"`
}

// Failures lists the requirements that did not pass.
func (r ComplianceResult) Failures() []RequirementResult {
	var failed []RequirementResult
	for _, req := range r.Requirements {
		if !req.Passed {
			failed = append(failed, req)
		}
	}
	return failed
}

// ComplianceInputs is everything the check needs.
type ComplianceInputs struct {
	Lead         *leaddomain.Lead
	OptInSignal  bool // recent page interaction, or any click or reply
	Unsubscribed bool // an unsubscribed engagement event exists
	ScheduledAt  time.Time
	Location     *time.Location // the lead's timezone
}

// CheckCompliance evaluates the four TCPA requirements.
func CheckCompliance(in ComplianceInputs) ComplianceResult {
	requirements := []RequirementResult{
		checkOptInSignal(in.OptInSignal),
		checkNoUnsubscribe(in.Unsubscribed),
		checkPhone(in.Lead),
		checkCallWindow(in.ScheduledAt, in.Location),
	}

	compliant := true
	for _, req := range requirements {
		if !req.Passed {
			compliant = false
		}
	}
	return ComplianceResult{Compliant: compliant, Requirements: requirements}
}

// checkNoUnsubscribe fails whenever an unsubscribe is on record, no
// matter what the lead signalled before or since.
func checkNoUnsubscribe(unsubscribed bool) RequirementResult {
	result := RequirementResult{Name: RequirementNoUnsubscribe, Passed: !unsubscribed}
	if result.Passed {
		result.Detail = "no unsubscribe event on record"
	} else {
		result.Detail = "lead has unsubscribed and must not be called"
	}
	return result
}

func checkOptInSignal(signal bool) RequirementResult {
	result := RequirementResult{Name: RequirementOptInSignal, Passed: signal}
	if result.Passed {
		result.Detail = "lead has shown an opt-in signal (page interaction, click, or reply)"
	} else {
		result.Detail = "no page interaction, click, or reply on record"
	}
	return result
}

func checkPhone(lead *leaddomain.Lead) RequirementResult {
	result := RequirementResult{Name: RequirementValidPhone}
	if lead.Phone == nil || *lead.Phone == "" {
		result.Detail = "lead has no phone number"
		return result
	}
	if !phone.IsValid(*lead.Phone) {
		result.Detail = "phone number is not valid"
		return result
	}
	result.Passed = true
	result.Detail = "phone number is valid"
	return result
}

// checkCallWindow verifies the call lands between 08:00 and 21:59 in
// the lead's local time.
func checkCallWindow(scheduledAt time.Time, loc *time.Location) RequirementResult {
	result := RequirementResult{Name: RequirementCallWindow}
	if loc == nil {
		loc = time.UTC
	}
	hour := scheduledAt.In(loc).Hour()
	if hour >= EarliestCallHour && hour <= LatestCallHour {
		result.Passed = true
		result.Detail = "call time is inside the permitted local window"
	} else {
		result.Detail = "call time falls outside 08:00-21:59 local time"
	}
	return result
}

// OptimalCallTime picks when to call: the lead's preferred hour if set,
// otherwise the hour they engage most, otherwise 10:00. The slot lands
// on the next business day and is clamped into the calling window.
func OptimalCallTime(preferredHour *int, engagementHours []int, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	hour := 10
	if preferredHour != nil {
		hour = *preferredHour
	} else if h, ok := modeHour(engagementHours); ok {
		hour = h
	}

	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)

	if candidate.Hour() < EarliestCallHour {
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), EarliestCallHour, 0, 0, 0, loc)
	} else if candidate.Hour() > LatestCallHour {
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day()+1, EarliestCallHour, 0, 0, 0, loc)
	}

	switch candidate.Weekday() {
	case time.Saturday:
		candidate = candidate.AddDate(0, 0, 2)
	case time.Sunday:
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate
}

// modeHour returns the most frequent hour, preferring the earliest on
// ties.
func modeHour(hours []int) (int, bool) {
	if len(hours) == 0 {
		return 0, false
	}
	var counts [24]int
	for _, h := range hours {
		if h >= 0 && h < 24 {
			counts[h]++
		}
	}
	best, bestCount := 0, 0
	for h, c := range counts {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	if bestCount == 0 {
		return 0, false
	}
	return best, true
}
