package services

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/logging"
)

// PartitionDateLayout is the format of TableInsight.LatestPartition.
const PartitionDateLayout = "2006-01-02"

// QueryInsights describes the tables a query touches.
type QueryInsights struct {
	Tables []TableInsight `json:"tables"`
}

// TableInsight is the catalog metadata shown for one table.
type TableInsight struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	LatestPartition string    `json:"latestPartition"`
	RetentionDays   int       `json:"retentionDays"`
	PartitionScheme string    `json:"partitionScheme"`
	OutputDelay     *int      `json:"outputDelay,omitempty"` // days behind the partition date
	IsCertified     bool      `json:"isMidasCertified"`
	DQScore         DQScore   `json:"dqScore"`
	OwnerTeam       OwnerTeam `json:"ownerTeam"`
	ExampleQueries  []string  `json:"exampleQueries"`
}

type DQScore struct {
	DataQualityScore int `json:"dataQualityScore"`
}

type OwnerTeam struct {
	Name         string       `json:"name"`
	SlackChannel string       `json:"slackChannel"`
	Members      []TeamMember `json:"members"`
}

type TeamMember struct {
	Name              string  `json:"name"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

// InsightsService answers metadata questions about the tables in a query.
type InsightsService interface {
	GetQueryMetadata(ctx context.Context, sql string, defaultSchema string) (*QueryInsights, error)
}

type insightsService struct {
	now     func() time.Time
	lagDays func() int
	logger  *zap.Logger
}

// NewInsightsService returns an insights service backed by a static sample
// catalog. The latest partition lags today by zero to three days.
func NewInsightsService(logger *zap.Logger) InsightsService {
	return &insightsService{
		now:     time.Now,
		lagDays: func() int { return rand.IntN(4) },
		logger:  logger.Named("insights-service"),
	}
}

var _ InsightsService = (*insightsService)(nil)

func (s *insightsService) GetQueryMetadata(ctx context.Context, sql string, defaultSchema string) (*QueryInsights, error) {
	s.logger.Debug("Building query insights",
		zap.String("default_schema", defaultSchema),
		zap.String("sql", logging.SanitizeQuery(sql)))

	partition := s.now().AddDate(0, 0, -s.lagDays()).Format(PartitionDateLayout)
	reservationsDelay := 2

	return &QueryInsights{
		Tables: []TableInsight{
			{
				Name:            "public.dim_listings",
				Description:     "Dimension table containing listing attributes and metadata for all listings on the platform.",
				LatestPartition: partition,
				RetentionDays:   365,
				PartitionScheme: "daily",
				IsCertified:     true,
				DQScore:         DQScore{DataQualityScore: 92},
				OwnerTeam: OwnerTeam{
					Name:         "Listings Team",
					SlackChannel: "listings-team",
					Members:      members("Diana Prince", "Clark Kent", "Bruce Wayne"),
				},
				ExampleQueries: []string{
					"SELECT * FROM public.dim_listings WHERE ds = '2024-01-01' LIMIT 100",
					"SELECT listing_id, host_id, property_type FROM public.dim_listings WHERE country = 'US'",
				},
			},
			{
				Name:            "public.fact_reservations",
				Description:     "Fact table containing all reservation events including bookings, cancellations, and modifications.",
				LatestPartition: partition,
				RetentionDays:   730,
				PartitionScheme: "daily",
				OutputDelay:     &reservationsDelay,
				IsCertified:     true,
				DQScore:         DQScore{DataQualityScore: 88},
				OwnerTeam: OwnerTeam{
					Name:         "Reservations Team",
					SlackChannel: "reservations",
					Members:      members("Peter Parker", "Mary Jane"),
				},
				ExampleQueries: []string{
					"SELECT COUNT(*) FROM public.fact_reservations WHERE ds >= DATE '2024-01-01'",
				},
			},
			{
				Name:            "public.dim_users",
				Description:     "User dimension table with profile information and account details.",
				LatestPartition: partition,
				RetentionDays:   180,
				PartitionScheme: "daily",
				IsCertified:     false,
				DQScore:         DQScore{DataQualityScore: 75},
				OwnerTeam: OwnerTeam{
					Name:         "Identity Team",
					SlackChannel: "identity",
					Members:      members("Tony Stark"),
				},
				ExampleQueries: []string{},
			},
		},
	}, nil
}

func members(names ...string) []TeamMember {
	out := make([]TeamMember, len(names))
	for i, name := range names {
		out[i] = TeamMember{Name: name}
	}
	return out
}
