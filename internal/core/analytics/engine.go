// Package analytics computes aggregate views over issue snapshots: ward
// rollups, geographic hotspot clusters, trend series and the composed
// impact/public reports. Every function is a pure computation over its
// arguments; callers fetch the issue list and pass it in.
package analytics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
)

const (
	// DefaultHotspotRadiusKm is the clustering radius used by the
	// composed reports.
	DefaultHotspotRadiusKm = 0.5

	// DefaultTrendDays is the trend window used by the composed reports.
	DefaultTrendDays = 30

	// earthRadiusKm is the mean Earth radius of the WGS84-sphere
	// approximation used by the haversine distance.
	earthRadiusKm = 6371

	dateLayout = "2006-01-02"
)

// hotspotMinIssues is the minimum cluster membership. Anchors with fewer
// nearby issues produce no hotspot and their issues stay unprocessed.
const hotspotMinIssues = 3

// recentResolutionLimit caps the public stats' recent-resolutions list.
const recentResolutionLimit = 10

// ResolutionDays returns the elapsed resolution time of a single issue in
// fractional days. Malformed timestamps are not validated; a ResolvedAt
// before CreatedAt yields a negative value.
func ResolutionDays(issue *domain.Issue) float64 {
	return issue.ResolvedAt.Sub(issue.CreatedAt).Hours() / 24
}

// AverageResolutionTime returns the mean resolution time in days across
// issues that are resolved AND carry a resolution timestamp, rounded to one
// decimal place. Issues missing either condition are excluded from both
// numerator and denominator. An empty eligible set yields 0.
func AverageResolutionTime(issues []*domain.Issue) float64 {
	var sum float64
	var n int
	for _, issue := range issues {
		if issue.Status != domain.StatusResolved || issue.ResolvedAt == nil {
			continue
		}
		sum += ResolutionDays(issue)
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

// WardReport aggregates one ward: status counts, category and priority
// histograms in first-seen order, resolution rate and mean resolution time.
// Matching is exact and case-sensitive; issues without a ward only match an
// empty target label.
func WardReport(issues []*domain.Issue, ward string) domain.WardAnalytics {
	var wardIssues []*domain.Issue
	for _, issue := range issues {
		if issue.Ward == ward {
			wardIssues = append(wardIssues, issue)
		}
	}

	report := domain.WardAnalytics{
		Ward:       ward,
		Categories: []domain.CategoryCount{},
		Priorities: []domain.PriorityCount{},
	}

	categoryIdx := make(map[domain.IssueCategory]int)
	priorityIdx := make(map[domain.IssuePriority]int)

	for _, issue := range wardIssues {
		report.TotalIssues++

		switch issue.Status {
		case domain.StatusOpen:
			report.OpenIssues++
		case domain.StatusInProgress:
			report.InProgressIssues++
		case domain.StatusResolved:
			report.ResolvedIssues++
		}

		if idx, ok := categoryIdx[issue.Category]; ok {
			report.Categories[idx].Count++
		} else {
			categoryIdx[issue.Category] = len(report.Categories)
			report.Categories = append(report.Categories, domain.CategoryCount{Category: issue.Category, Count: 1})
		}

		if idx, ok := priorityIdx[issue.Priority]; ok {
			report.Priorities[idx].Count++
		} else {
			priorityIdx[issue.Priority] = len(report.Priorities)
			report.Priorities = append(report.Priorities, domain.PriorityCount{Priority: issue.Priority, Count: 1})
		}
	}

	report.ResolutionRate = resolutionRate(report.ResolvedIssues, report.TotalIssues)
	report.AverageResolutionTime = AverageResolutionTime(wardIssues)

	return report
}

// Hotspots clusters issues into geographic hotspots using a greedy
// single-pass sweep: each unprocessed issue in input order anchors a
// candidate cluster of every still-unprocessed issue within radiusKm of it
// (itself included). Candidates with at least three members become
// hotspots and claim their members; smaller ones are dropped and their
// issues remain available to later anchors.
//
// Membership therefore depends on input order. This is deliberately NOT a
// stable spatial partition (DBSCAN et al.) - report consumers depend on the
// greedy behavior, so keep it.
func Hotspots(issues []*domain.Issue, radiusKm float64) []domain.IssueHotspot {
	if radiusKm <= 0 {
		radiusKm = DefaultHotspotRadiusKm
	}

	hotspots := []domain.IssueHotspot{}
	processed := make(map[string]bool, len(issues))

	for _, anchor := range issues {
		if processed[anchor.ID.String()] {
			continue
		}

		var members []*domain.Issue
		for _, candidate := range issues {
			if processed[candidate.ID.String()] {
				continue
			}
			if haversineKm(anchor.Coordinates, candidate.Coordinates) <= radiusKm {
				members = append(members, candidate)
			}
		}

		if len(members) < hotspotMinIssues {
			continue
		}

		var latSum, lngSum float64
		categories := []domain.IssueCategory{}
		seenCategory := make(map[domain.IssueCategory]bool)

		for _, m := range members {
			processed[m.ID.String()] = true
			latSum += m.Coordinates.Lat
			lngSum += m.Coordinates.Lng
			if !seenCategory[m.Category] {
				seenCategory[m.Category] = true
				categories = append(categories, m.Category)
			}
		}

		hotspots = append(hotspots, domain.IssueHotspot{
			// Arithmetic mean, not geodesic-correct; fine at sub-km radii.
			Center: domain.Coordinates{
				Lat: latSum / float64(len(members)),
				Lng: lngSum / float64(len(members)),
			},
			IssueCount: len(members),
			Categories: categories,
			Severity:   hotspotSeverity(members),
			Location:   members[0].Location,
			Ward:       members[0].Ward,
		})
	}

	// Ties keep discovery order.
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].IssueCount > hotspots[j].IssueCount
	})

	return hotspots
}

// hotspotSeverity assigns the severity tier; first match wins.
func hotspotSeverity(members []*domain.Issue) domain.HotspotSeverity {
	highCount := 0
	for _, m := range members {
		if m.Priority == domain.PriorityCritical {
			return domain.SeverityCritical
		}
		if m.Priority == domain.PriorityHigh {
			highCount++
		}
	}
	if highCount >= 2 {
		return domain.SeverityHigh
	}
	if len(members) >= 5 {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// TrendSeries produces one point per calendar day from now-days through
// now inclusive (days+1 points), keyed by UTC date. OpenIssues is a running
// total seeded at zero at the window start: issues created before the
// window are invisible to it, so early values can be understated or
// negative. That drift is part of the contract; do not "fix" it here.
func TrendSeries(issues []*domain.Issue, days int, now time.Time) []domain.TrendPoint {
	if days <= 0 {
		days = DefaultTrendDays
	}

	createdByDay := make(map[string]int)
	resolvedByDay := make(map[string]int)
	for _, issue := range issues {
		createdByDay[issue.CreatedAt.UTC().Format(dateLayout)]++
		if issue.ResolvedAt != nil {
			resolvedByDay[issue.ResolvedAt.UTC().Format(dateLayout)]++
		}
	}

	points := make([]domain.TrendPoint, 0, days+1)
	cumulative := 0
	start := now.UTC().AddDate(0, 0, -days)

	for d := 0; d <= days; d++ {
		date := start.AddDate(0, 0, d).Format(dateLayout)
		created := createdByDay[date]
		resolved := resolvedByDay[date]
		cumulative += created - resolved

		points = append(points, domain.TrendPoint{
			Date:           date,
			NewIssues:      created,
			ResolvedIssues: resolved,
			OpenIssues:     cumulative,
		})
	}

	return points
}

// ImpactReport composes the full internal report for a date range. When
// rng is nil the range is derived from the min/max creation time present
// (or the trailing 30 days for an empty set). Ward analytics are computed
// for the caller-supplied ward labels, not discovered from data; the trend
// window is fixed at 30 days regardless of the report range.
func ImpactReport(issues []*domain.Issue, wards []string, rng *domain.DateRange, now time.Time) domain.ImpactReport {
	filtered := issues
	if rng != nil {
		filtered = nil
		for _, issue := range issues {
			if !issue.CreatedAt.Before(rng.Start) && !issue.CreatedAt.After(rng.End) {
				filtered = append(filtered, issue)
			}
		}
	}

	report := domain.ImpactReport{
		Range:      reportRange(filtered, rng, now),
		Summary:    summarize(filtered),
		Wards:      make([]domain.WardAnalytics, 0, len(wards)),
		Hotspots:   Hotspots(filtered, DefaultHotspotRadiusKm),
		Trend:      TrendSeries(filtered, DefaultTrendDays, now),
		Categories: categoryPerformance(filtered),
	}

	for _, ward := range wards {
		report.Wards = append(report.Wards, WardReport(filtered, ward))
	}

	return report
}

// reportRange echoes the requested range or derives a synthetic one.
func reportRange(filtered []*domain.Issue, rng *domain.DateRange, now time.Time) domain.DateRange {
	if rng != nil {
		return *rng
	}
	if len(filtered) == 0 {
		return domain.DateRange{Start: now.UTC().AddDate(0, 0, -DefaultTrendDays), End: now.UTC()}
	}
	min, max := filtered[0].CreatedAt, filtered[0].CreatedAt
	for _, issue := range filtered[1:] {
		if issue.CreatedAt.Before(min) {
			min = issue.CreatedAt
		}
		if issue.CreatedAt.After(max) {
			max = issue.CreatedAt
		}
	}
	return domain.DateRange{Start: min, End: max}
}

func summarize(issues []*domain.Issue) domain.ReportSummary {
	summary := domain.ReportSummary{TotalIssues: len(issues)}
	for _, issue := range issues {
		switch issue.Status {
		case domain.StatusOpen:
			summary.OpenIssues++
		case domain.StatusInProgress:
			summary.InProgressIssues++
		case domain.StatusResolved:
			summary.ResolvedIssues++
		case domain.StatusClosed:
			summary.ClosedIssues++
		}
	}
	summary.ResolutionRate = resolutionRate(summary.ResolvedIssues, summary.TotalIssues)
	summary.AverageResolutionTime = AverageResolutionTime(issues)
	return summary
}

// categoryPerformance groups issues by category in first-seen order. The
// groups partition the input, so the per-category totals sum to len(issues).
func categoryPerformance(issues []*domain.Issue) []domain.CategoryPerformance {
	groups := make(map[domain.IssueCategory][]*domain.Issue)
	order := []domain.IssueCategory{}
	for _, issue := range issues {
		if _, ok := groups[issue.Category]; !ok {
			order = append(order, issue.Category)
		}
		groups[issue.Category] = append(groups[issue.Category], issue)
	}

	perf := make([]domain.CategoryPerformance, 0, len(order))
	for _, category := range order {
		group := groups[category]
		resolved := 0
		for _, issue := range group {
			if issue.Status == domain.StatusResolved {
				resolved++
			}
		}
		perf = append(perf, domain.CategoryPerformance{
			Category:              category,
			TotalIssues:           len(group),
			ResolvedIssues:        resolved,
			AverageResolutionTime: AverageResolutionTime(group),
		})
	}
	return perf
}

// PublicStats builds the anonymized public view: aggregate totals, ward
// performance for wards actually present in the data, the ten most recently
// resolved issues (no reporter identity) and per-category counts.
func PublicStats(issues []*domain.Issue, activeUsers int, now time.Time) domain.PublicStats {
	stats := domain.PublicStats{
		TotalIssues:       len(issues),
		ActiveUsers:       activeUsers,
		Wards:             []domain.WardPerformance{},
		RecentResolutions: []domain.RecentResolution{},
		Categories:        []domain.CategoryStat{},
	}

	wardIdx := make(map[string]int)
	categoryIdx := make(map[domain.IssueCategory]int)
	var resolved []*domain.Issue

	for _, issue := range issues {
		isResolved := issue.Status == domain.StatusResolved
		if isResolved {
			stats.ResolvedIssues++
			if issue.ResolvedAt != nil {
				resolved = append(resolved, issue)
			}
		}

		if issue.Ward != "" {
			idx, ok := wardIdx[issue.Ward]
			if !ok {
				idx = len(stats.Wards)
				wardIdx[issue.Ward] = idx
				stats.Wards = append(stats.Wards, domain.WardPerformance{Ward: issue.Ward})
			}
			stats.Wards[idx].TotalIssues++
			if isResolved {
				stats.Wards[idx].ResolvedIssues++
			}
		}

		idx, ok := categoryIdx[issue.Category]
		if !ok {
			idx = len(stats.Categories)
			categoryIdx[issue.Category] = idx
			stats.Categories = append(stats.Categories, domain.CategoryStat{Category: issue.Category})
		}
		stats.Categories[idx].Count++
		if isResolved {
			stats.Categories[idx].ResolvedCount++
		}
	}

	for i := range stats.Wards {
		stats.Wards[i].ResolutionRate = resolutionRate(stats.Wards[i].ResolvedIssues, stats.Wards[i].TotalIssues)
	}

	stats.ResolutionRate = resolutionRate(stats.ResolvedIssues, stats.TotalIssues)
	stats.AverageResolutionTime = AverageResolutionTime(issues)

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].ResolvedAt.After(*resolved[j].ResolvedAt)
	})
	for i, issue := range resolved {
		if i == recentResolutionLimit {
			break
		}
		stats.RecentResolutions = append(stats.RecentResolutions, domain.RecentResolution{
			ID:             issue.ID,
			Title:          issue.Title,
			Category:       issue.Category,
			Ward:           issue.Ward,
			ResolvedAt:     *issue.ResolvedAt,
			ResolutionTime: round1(ResolutionDays(issue)),
		})
	}

	return stats
}

// FormatResolutionTime renders a day count as a human-readable duration.
// Thresholds: under a day in hours, under a week in days, under thirty days
// in weeks, otherwise months. Rounding is half away from zero, so 45 days
// is "2 months". Consumers rely on these exact thresholds.
func FormatResolutionTime(days float64) string {
	switch {
	case days < 1:
		return pluralize(int(math.Round(days*24)), "hour")
	case days < 7:
		return pluralize(int(math.Round(days)), "day")
	case days < 30:
		return pluralize(int(math.Round(days/7)), "week")
	default:
		return pluralize(int(math.Round(days/30)), "month")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// resolutionRate computes round(resolved/total*100) guarding the zero
// denominator.
func resolutionRate(resolved, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(resolved) / float64(total) * 100))
}

// haversineKm returns the great-circle distance between two coordinates on
// the mean-radius sphere.
func haversineKm(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
