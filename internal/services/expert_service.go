package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

// ExpertDetails is the aggregate a terminal or admin screen requests for one
// expert advisor: the registry row, its tradable pairs, the registrations it
// runs for and overall counters.
type ExpertDetails struct {
	Expert         models.Expert             `json:"expert"`
	Pairs          []models.ExpertPair       `json:"pairs"`
	Assignments    []models.ExpertAssignment `json:"assignments"`
	RecentActivity []models.ActivityLog      `json:"recent_activity"`
	Statistics     ExpertStatistics          `json:"statistics"`
}

// ExpertStatistics summarises an expert's footprint.
type ExpertStatistics struct {
	TotalPairs        int64 `json:"total_pairs"`
	EnabledPairs      int64 `json:"enabled_pairs"`
	AssignedClients   int64 `json:"assigned_clients"`
	ActiveAssignments int64 `json:"active_assignments"`
}

// RegisterExpertInput captures a new expert-advisor registration.
type RegisterExpertInput struct {
	Name        string
	Version     string
	Description string
}

const recentActivityLimit = 10

// ExpertService manages the expert-advisor registry.
type ExpertService struct {
	db *gorm.DB
}

// NewExpertService constructs an ExpertService.
func NewExpertService(db *gorm.DB) (*ExpertService, error) {
	if db == nil {
		return nil, errors.New("expert service: db is required")
	}
	return &ExpertService{db: db}, nil
}

// GetDetails loads one expert by name with its pairs, assignments and counters.
func (s *ExpertService) GetDetails(ctx context.Context, name string) (*ExpertDetails, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("ea_name is required")
	}

	var expert models.Expert
	err := s.db.WithContext(ctx).
		Preload("Pairs").
		Preload("Assignments.AccountName").
		Where("name = ?", name).
		Take(&expert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("expert advisor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("expert service: find expert: %w", err)
	}

	details := &ExpertDetails{
		Expert:      expert,
		Pairs:       expert.Pairs,
		Assignments: expert.Assignments,
		Statistics: ExpertStatistics{
			TotalPairs:      int64(len(expert.Pairs)),
			AssignedClients: int64(len(expert.Assignments)),
		},
	}
	for _, pair := range expert.Pairs {
		if pair.State == models.PairStateEnabled {
			details.Statistics.EnabledPairs++
		}
	}
	for _, assignment := range expert.Assignments {
		if assignment.State == models.PairStateEnabled {
			details.Statistics.ActiveAssignments++
		}
	}

	if len(expert.Assignments) > 0 {
		nameIDs := make([]string, 0, len(expert.Assignments))
		for _, assignment := range expert.Assignments {
			nameIDs = append(nameIDs, assignment.AccountNameID)
		}
		if err := s.db.WithContext(ctx).
			Where("account_name_id IN ?", nameIDs).
			Order("created_at DESC").
			Limit(recentActivityLimit).
			Find(&details.RecentActivity).Error; err != nil {
			return nil, fmt.Errorf("expert service: load recent activity: %w", err)
		}
	}

	return details, nil
}

// Register creates an expert-advisor registry entry.
func (s *ExpertService) Register(ctx context.Context, input RegisterExpertInput) (*models.Expert, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	expert := &models.Expert{
		Name:        name,
		Version:     strings.TrimSpace(input.Version),
		Description: strings.TrimSpace(input.Description),
		State:       models.PairStateEnabled,
	}
	if err := s.db.WithContext(ctx).Create(expert).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("expert advisor already registered")
		}
		return nil, fmt.Errorf("expert service: register expert: %w", err)
	}

	return expert, nil
}

// AddPair allows an expert to trade one more instrument. Adding a pair the
// expert already carries is a no-op rather than an error.
func (s *ExpertService) AddPair(ctx context.Context, expertID, pair string) (*models.ExpertPair, error) {
	ctx = ensureContext(ctx)

	pair = strings.ToUpper(strings.TrimSpace(pair))
	if expertID == "" || pair == "" {
		return nil, apperrors.NewBadRequest("expert_id and pair are required")
	}

	row := &models.ExpertPair{
		ExpertID: expertID,
		Pair:     pair,
		State:    models.PairStateEnabled,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			var existing models.ExpertPair
			if ferr := s.db.WithContext(ctx).
				Where("expert_id = ? AND pair = ?", expertID, pair).
				Take(&existing).Error; ferr == nil {
				return &existing, nil
			}
			return nil, apperrors.NewConflict("pair already registered for expert")
		}
		return nil, fmt.Errorf("expert service: add pair: %w", err)
	}

	return row, nil
}

// AssignClient links an expert to an account-name registration.
func (s *ExpertService) AssignClient(ctx context.Context, expertID, accountNameID string) (*models.ExpertAssignment, error) {
	ctx = ensureContext(ctx)

	if expertID == "" || accountNameID == "" {
		return nil, apperrors.NewBadRequest("expert_id and account_name_id are required")
	}

	var owner models.AccountName
	err := s.db.WithContext(ctx).Where("id = ?", accountNameID).Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("account name not found")
	}
	if err != nil {
		return nil, fmt.Errorf("expert service: resolve account name: %w", err)
	}

	assignment := &models.ExpertAssignment{
		ExpertID:      expertID,
		AccountNameID: accountNameID,
		State:         models.PairStateEnabled,
	}
	if err := s.db.WithContext(ctx).Create(assignment).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("expert already assigned to client")
		}
		return nil, fmt.Errorf("expert service: assign client: %w", err)
	}

	return assignment, nil
}

// ListAssignments returns every assignment for an expert with the owning
// registration preloaded.
func (s *ExpertService) ListAssignments(ctx context.Context, expertID string) ([]models.ExpertAssignment, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(expertID) == "" {
		return nil, apperrors.NewBadRequest("expert_id is required")
	}

	var assignments []models.ExpertAssignment
	if err := s.db.WithContext(ctx).
		Preload("AccountName").
		Where("expert_id = ?", expertID).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("expert service: list assignments: %w", err)
	}

	return assignments, nil
}

// SetState enables or disables an expert across all of its assignments.
func (s *ExpertService) SetState(ctx context.Context, expertID, state string) error {
	ctx = ensureContext(ctx)

	if state != models.PairStateEnabled && state != models.PairStateDisabled {
		return apperrors.NewBadRequest("state must be enabled or disabled")
	}

	result := s.db.WithContext(ctx).Model(&models.Expert{}).
		Where("id = ?", strings.TrimSpace(expertID)).
		Update("state", state)
	if result.Error != nil {
		return fmt.Errorf("expert service: update expert state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("expert advisor not found")
	}

	return nil
}
