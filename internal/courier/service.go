package courier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUnknownVehicleType = errors.New("unknown vehicle type")
	ErrAlreadyApplied     = errors.New("courier application already exists")
)

// Events 骑手事件回调（通知分发器实现）。
type Events interface {
	NewApplication(ctx context.Context, courierID string)
}

// Service 骑手入驻申请与审核。
type Service struct {
	repo   *Repo
	events Events
	log    logger.Logger
}

func NewService(repo *Repo, events Events, log logger.Logger) *Service {
	return &Service{repo: repo, events: events, log: log}
}

type ApplyInput struct {
	UserID      string
	VehicleType string
	PlateNumber string
	ServiceArea string
}

// Apply 提交入驻申请。车型在这里折叠成规范枚举，库里只存规范值。
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Courier, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	vt, ok := NormalizeVehicleType(in.VehicleType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVehicleType, in.VehicleType)
	}

	if _, err := s.repo.GetByUserID(ctx, in.UserID); err == nil {
		return nil, ErrAlreadyApplied
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := &Courier{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		ApplicationStatus: ApplicationPending,
		VehicleType:       vt,
		PlateNumber:       strings.TrimSpace(in.PlateNumber),
		ServiceArea:       strings.TrimSpace(in.ServiceArea),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create courier application: %w", err)
	}

	if s.events != nil {
		s.events.NewApplication(ctx, c.ID)
	}
	if s.log != nil {
		s.log.Infof("courier application submitted: id=%s user=%s vehicle=%s", c.ID, c.UserID, vt)
	}
	return c, nil
}

// Review 管理员审核：approved / rejected / suspended。
func (s *Service) Review(ctx context.Context, id string, status ApplicationStatus) (*Courier, error) {
	switch status {
	case ApplicationApproved, ApplicationRejected, ApplicationSuspended:
	default:
		return nil, fmt.Errorf("invalid review status %q", status)
	}
	if err := s.repo.UpdateApplicationStatus(ctx, id, status, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Courier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUser(ctx context.Context, userID string) (*Courier, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) List(ctx context.Context, status ApplicationStatus, offset, limit int) ([]Courier, int64, error) {
	return s.repo.List(ctx, status, offset, limit)
}
