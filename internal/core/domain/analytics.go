package domain

import (
	"time"

	"github.com/google/uuid"
)

// CategoryCount is one entry of a category histogram. Entries keep
// first-seen order, so the slice shape is stable across recomputation.
type CategoryCount struct {
	Category IssueCategory `json:"category"`
	Count    int           `json:"count"`
}

// PriorityCount is one entry of a priority histogram.
type PriorityCount struct {
	Priority IssuePriority `json:"priority"`
	Count    int           `json:"count"`
}

// WardAnalytics is the per-ward rollup: status counts, histograms,
// resolution rate and mean resolution time.
type WardAnalytics struct {
	Ward                  string          `json:"ward"`
	TotalIssues           int             `json:"totalIssues"`
	OpenIssues            int             `json:"openIssues"`
	InProgressIssues      int             `json:"inProgressIssues"`
	ResolvedIssues        int             `json:"resolvedIssues"`
	Categories            []CategoryCount `json:"categories"`
	Priorities            []PriorityCount `json:"priorities"`
	AverageResolutionTime float64         `json:"averageResolutionTime"` // days
	ResolutionRate        int             `json:"resolutionRate"`        // percent
}

// HotspotSeverity is the discrete severity tier of a hotspot.
type HotspotSeverity string

const (
	SeverityLow      HotspotSeverity = "low"
	SeverityMedium   HotspotSeverity = "medium"
	SeverityHigh     HotspotSeverity = "high"
	SeverityCritical HotspotSeverity = "critical"
)

// IssueHotspot is a geographic cluster of nearby issues.
type IssueHotspot struct {
	Center     Coordinates     `json:"center"`
	IssueCount int             `json:"issueCount"`
	Categories []IssueCategory `json:"categories"`
	Severity   HotspotSeverity `json:"severity"`
	Location   string          `json:"location"`
	Ward       string          `json:"ward"`
}

// TrendPoint is one calendar day of the trend series.
type TrendPoint struct {
	Date           string `json:"date"` // YYYY-MM-DD (UTC)
	NewIssues      int    `json:"newIssues"`
	ResolvedIssues int    `json:"resolvedIssues"`
	OpenIssues     int    `json:"openIssues"` // cumulative running total
}

// CategoryPerformance summarizes resolution performance per category.
type CategoryPerformance struct {
	Category              IssueCategory `json:"category"`
	TotalIssues           int           `json:"totalIssues"`
	ResolvedIssues        int           `json:"resolvedIssues"`
	AverageResolutionTime float64       `json:"averageResolutionTime"` // days
}

// DateRange is an inclusive creation-time window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReportSummary holds the headline totals of an impact report.
type ReportSummary struct {
	TotalIssues           int     `json:"totalIssues"`
	OpenIssues            int     `json:"openIssues"`
	InProgressIssues      int     `json:"inProgressIssues"`
	ResolvedIssues        int     `json:"resolvedIssues"`
	ClosedIssues          int     `json:"closedIssues"`
	ResolutionRate        int     `json:"resolutionRate"`
	AverageResolutionTime float64 `json:"averageResolutionTime"`
}

// ImpactReport is the role-gated aggregate view for a date range.
type ImpactReport struct {
	Range      DateRange             `json:"range"`
	Summary    ReportSummary         `json:"summary"`
	Wards      []WardAnalytics       `json:"wards"`
	Hotspots   []IssueHotspot        `json:"hotspots"`
	Trend      []TrendPoint          `json:"trend"`
	Categories []CategoryPerformance `json:"categories"`
}

// WardPerformance is the anonymized per-ward entry of the public stats.
type WardPerformance struct {
	Ward           string `json:"ward"`
	TotalIssues    int    `json:"totalIssues"`
	ResolvedIssues int    `json:"resolvedIssues"`
	ResolutionRate int    `json:"resolutionRate"`
}

// RecentResolution exposes a recently resolved issue without any
// reporter identity.
type RecentResolution struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	Category       IssueCategory `json:"category"`
	Ward           string        `json:"ward"`
	ResolvedAt     time.Time     `json:"resolvedAt"`
	ResolutionTime float64       `json:"resolutionTime"` // days
}

// CategoryStat is a simple count/resolvedCount pair per category.
type CategoryStat struct {
	Category      IssueCategory `json:"category"`
	Count         int           `json:"count"`
	ResolvedCount int           `json:"resolvedCount"`
}

// PublicStats is the anonymized, externally shareable aggregate view.
type PublicStats struct {
	TotalIssues           int                `json:"totalIssues"`
	ResolvedIssues        int                `json:"resolvedIssues"`
	ResolutionRate        int                `json:"resolutionRate"`
	AverageResolutionTime float64            `json:"averageResolutionTime"`
	ActiveUsers           int                `json:"activeUsers"`
	Wards                 []WardPerformance  `json:"wards"`
	RecentResolutions     []RecentResolution `json:"recentResolutions"`
	Categories            []CategoryStat     `json:"categories"`
}
