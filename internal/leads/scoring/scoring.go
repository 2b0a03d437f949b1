// Package scoring computes multi-factor lead scores. Everything here
// is pure: inputs go in, a breakdown comes out, so the whole model is
// unit-testable without a database.
package scoring

import (
	"math"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"
)

// Factor caps. The five factors sum to at most 100.
const (
	MaxProfileQuality = 25
	MaxEngagement     = 30
	MaxBehavioral     = 25
	MaxCompanyFit     = 15
	MaxTiming         = 5
)

// Category thresholds.
const (
	CoolThreshold     = 25
	LukewarmThreshold = 50
	WarmThreshold     = 75
)

// Promotion cutoffs.
const (
	PromotionScore    = 75
	HighPriorityScore = 85
)

var personalEmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
}

var highValueIndustries = map[string]bool{
	"technology":    true,
	"finance":       true,
	"healthcare":    true,
	"manufacturing": true,
}

var decisionMakerTitles = []string{"ceo", "cto", "vp", "director", "head", "manager"}

// Breakdown is the per-factor decomposition of a lead score.
type Breakdown struct {
	ProfileQuality int `json:"profile_quality"`
	Engagement     int `json:"engagement"`
	Behavioral     int `json:"behavioral"`
	CompanyFit     int `json:"company_fit"`
	Timing         int `json:"timing"`
}

// Total sums the factors.
func (b Breakdown) Total() int {
	return b.ProfileQuality + b.Engagement + b.Behavioral + b.CompanyFit + b.Timing
}

// Inputs is everything the model needs about one lead.
type Inputs struct {
	Lead     *domain.Lead
	Stats    *domain.EngagementStats
	Sequence domain.SequenceProgress
	Now      time.Time
}

// Compute runs the full model.
func Compute(in Inputs) Breakdown {
	return Breakdown{
		ProfileQuality: ProfileQuality(in.Lead),
		Engagement:     Engagement(in.Stats, in.Sequence),
		Behavioral:     Behavioral(in.Stats),
		CompanyFit:     CompanyFit(in.Lead),
		Timing:         Timing(in.Lead, in.Sequence, in.Now),
	}
}

// ProfileQuality scores how complete and valuable the lead's profile is.
func ProfileQuality(lead *domain.Lead) int {
	score := 0

	domain := emailDomain(lead.Email)
	if domain != "" {
		if personalEmailDomains[domain] {
			score += 3
		} else {
			score += 8
		}
	}
	if notEmpty(lead.FirstName) {
		score += 2
	}
	if notEmpty(lead.LastName) {
		score += 2
	}
	if notEmpty(lead.Company) {
		score += 3
	}
	if notEmpty(lead.Title) {
		score += 2
	}
	if notEmpty(lead.LinkedInURL) {
		score++
	}
	if notEmpty(lead.Phone) {
		score += 3
	}
	if notEmpty(lead.Industry) {
		if highValueIndustries[strings.ToLower(*lead.Industry)] {
			score += 4
		} else {
			score += 2
		}
	}

	return clamp(score, MaxProfileQuality)
}

// Engagement scores email and site interactions plus sequence progress.
func Engagement(stats *domain.EngagementStats, seq domain.SequenceProgress) int {
	score := 0

	score += minInt(8, stats.Opens*2)
	score += minInt(12, stats.Clicks*4)
	score += minInt(10, stats.Replies*10)

	if stats.PageViews > 0 {
		score += 3
	}
	if stats.PageViews > 2 {
		score += 2
	}
	if stats.Conversions > 0 {
		score += 3
	}

	if seq.Active && seq.TotalSteps > 0 {
		score += int(math.Round(float64(seq.CurrentStep) / float64(seq.TotalSteps) * 5))
	}

	return clamp(score, MaxEngagement)
}

// Behavioral scores the quality of engagement, not just the volume.
func Behavioral(stats *domain.EngagementStats) int {
	score := 0

	score += minInt(8, stats.FastResponses*2)

	if stats.TotalEvents >= 3 {
		score += 4
	}
	if stats.TotalEvents >= 5 {
		score += 3
	}

	score += minInt(5, stats.Forwards*5)

	if stats.LongDwellPages > 0 {
		score += 3
	}

	return clamp(score, MaxBehavioral)
}

// CompanyFit scores how well the lead's company matches the target profile.
func CompanyFit(lead *domain.Lead) int {
	score := 0

	switch sizeBucket(lead.CompanySize) {
	case "enterprise":
		score += 6
	case "medium":
		score += 4
	case "small":
		score += 3
	default:
		score++
	}

	if notEmpty(lead.Title) && isDecisionMaker(*lead.Title) {
		score += 6
	} else {
		score += 2
	}

	if notEmpty(lead.Industry) && highValueIndustries[strings.ToLower(*lead.Industry)] {
		score += 3
	}

	return clamp(score, MaxCompanyFit)
}

// Timing scores recency of the last touch and sequence activity.
func Timing(lead *domain.Lead, seq domain.SequenceProgress, now time.Time) int {
	score := 0

	if lead.LastEngagementAt != nil {
		hours := now.Sub(*lead.LastEngagementAt).Hours()
		switch {
		case hours < 24:
			score += 3
		case hours < 72:
			score += 2
		case hours < 168:
			score++
		}
	}

	if seq.Active {
		score += 2
	}

	return clamp(score, MaxTiming)
}

// Categorize buckets a total score.
func Categorize(total int) domain.Category {
	switch {
	case total >= WarmThreshold:
		return domain.CategoryWarm
	case total >= LukewarmThreshold:
		return domain.CategoryLukewarm
	case total >= CoolThreshold:
		return domain.CategoryCool
	default:
		return domain.CategoryCold
	}
}

// ShouldPromote reports whether a scored lead qualifies for a call.
func ShouldPromote(total int) bool {
	return total >= PromotionScore && Categorize(total) == domain.CategoryWarm
}

// CallPriority picks the scheduling priority for a promoted lead.
func CallPriority(total int) string {
	if total >= HighPriorityScore {
		return "high"
	}
	return "medium"
}

// =============================================================================
// Event deltas
// =============================================================================

var eventDeltas = map[domain.EngagementType]int{
	domain.EngagementOpened:     2,
	domain.EngagementClicked:    8,
	domain.EngagementReplied:    15,
	domain.EngagementPageView:   5,
	domain.EngagementFormSubmit: 20,
	domain.EngagementDownload:   12,
	domain.EngagementVideoWatch: 10,
	domain.EngagementUnsub:      -25,
}

// Delta returns the score adjustment for one engagement event, scaled
// by how recently the lead was last active: fresh threads weigh more,
// stale ones less.
func Delta(eventType domain.EngagementType, lastEngagementAt *time.Time, now time.Time) int {
	base, ok := eventDeltas[eventType]
	if !ok {
		return 0
	}

	multiplier := 1.0
	if lastEngagementAt != nil {
		hours := now.Sub(*lastEngagementAt).Hours()
		switch {
		case hours < 1:
			multiplier = 1.5
		case hours > 168:
			multiplier = 0.5
		}
	}

	return int(math.Round(float64(base) * multiplier))
}

// =============================================================================
// Helpers
// =============================================================================

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func isDecisionMaker(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range decisionMakerTitles {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// sizeBucket maps free-form company size values to a bucket. Accepts
// both labels ("enterprise") and ranges ("1000+", "100-1000", "10-100").
func sizeBucket(size *string) string {
	if size == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(*size)) {
	case "enterprise", "1000+":
		return "enterprise"
	case "medium", "100-1000":
		return "medium"
	case "small", "10-100":
		return "small"
	default:
		return ""
	}
}

func notEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func clamp(score, max int) int {
	if score > max {
		return max
	}
	return score
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
