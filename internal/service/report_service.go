package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrPhaseNotFound         = errors.New("阶段不存在")
	ErrEventNotFound         = errors.New("事件不存在")
	ErrEventAlreadyPublished = errors.New("事件已发布，不能再修改")
)

// reportService 战报服务实现
// 草稿->发布是单向转换，发布操作幂等且仅主持人可执行
type reportService struct {
	gameRepo      repository.GameRepository
	phaseRepo     repository.PhaseRepository
	eventRepo     repository.EventRepository
	characterRepo repository.CharacterRepository
	log           *zap.Logger
}

// NewReportService 创建战报服务
func NewReportService(
	gameRepo repository.GameRepository,
	phaseRepo repository.PhaseRepository,
	eventRepo repository.EventRepository,
	characterRepo repository.CharacterRepository,
	log *zap.Logger,
) ReportService {
	return &reportService{
		gameRepo:      gameRepo,
		phaseRepo:     phaseRepo,
		eventRepo:     eventRepo,
		characterRepo: characterRepo,
		log:           log,
	}
}

// CreateEvent 创建战报事件（默认为草稿）
func (s *reportService) CreateEvent(ctx context.Context, actorID, gameID, phaseID uint, req *EventRequest) (*models.PhaseEvent, error) {
	if _, err := s.hostedPhase(ctx, actorID, gameID, phaseID); err != nil {
		return nil, err
	}

	event := &models.PhaseEvent{
		PhaseID:  phaseID,
		Draft:    true,
		Template: req.Template,
		ActorID:  req.ActorID,
		TargetID: req.TargetID,
		Clues:    models.StringList(req.Clues),
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("创建事件失败: %w", err)
	}

	s.log.Info("Report event created",
		zap.Uint("game_id", gameID),
		zap.Uint("phase_id", phaseID),
		zap.Uint("event_id", event.ID))
	return event, nil
}

// UpdateEvent 修改草稿事件
// 已发布的事件不可修改
func (s *reportService) UpdateEvent(ctx context.Context, actorID, gameID, eventID uint, req *EventRequest) (*models.PhaseEvent, error) {
	event, err := s.hostedEvent(ctx, actorID, gameID, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsPublished() {
		return nil, ErrEventAlreadyPublished
	}

	event.Template = req.Template
	event.ActorID = req.ActorID
	event.TargetID = req.TargetID
	event.Clues = models.StringList(req.Clues)
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("更新事件失败: %w", err)
	}
	return event, nil
}

// DeleteEvent 删除草稿事件
func (s *reportService) DeleteEvent(ctx context.Context, actorID, gameID, eventID uint) error {
	event, err := s.hostedEvent(ctx, actorID, gameID, eventID)
	if err != nil {
		return err
	}
	if event.IsPublished() {
		return ErrEventAlreadyPublished
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("删除事件失败: %w", err)
	}
	return nil
}

// PublishEvent 发布单个事件
// 幂等：重复发布已发布的事件直接返回成功
func (s *reportService) PublishEvent(ctx context.Context, actorID, gameID, eventID uint) (*models.PhaseEvent, error) {
	event, err := s.hostedEvent(ctx, actorID, gameID, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsPublished() {
		return event, nil
	}

	now := time.Now()
	event.Draft = false
	event.PublishedAt = &now
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("发布事件失败: %w", err)
	}

	s.log.Info("Report event published",
		zap.Uint("game_id", gameID),
		zap.Uint("event_id", eventID))
	return event, nil
}

// PublishPhase 发布阶段的全部草稿事件，返回发布数量（幂等）
func (s *reportService) PublishPhase(ctx context.Context, actorID, gameID, phaseID uint) (int64, error) {
	if _, err := s.hostedPhase(ctx, actorID, gameID, phaseID); err != nil {
		return 0, err
	}
	published, err := s.eventRepo.PublishByPhase(ctx, phaseID)
	if err != nil {
		return 0, fmt.Errorf("发布阶段战报失败: %w", err)
	}
	if published > 0 {
		s.log.Info("Phase report published",
			zap.Uint("game_id", gameID),
			zap.Uint("phase_id", phaseID),
			zap.Int64("events", published))
	}
	return published, nil
}

// GetPhaseReport 获取阶段战报
// 主持人看到全部事件，其他访问者只看到已发布的
func (s *reportService) GetPhaseReport(ctx context.Context, viewer *Viewer, gameID, phaseID uint) (*PhaseReport, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	phase, err := s.phaseRepo.FindByID(ctx, phaseID)
	if err != nil || phase.GameID != game.ID {
		return nil, ErrPhaseNotFound
	}

	access := Classify(viewer, game, nil, nil)
	events, err := s.eventRepo.FindByPhase(ctx, phaseID, access.SeesDrafts())
	if err != nil {
		return nil, fmt.Errorf("查询战报失败: %w", err)
	}

	return &PhaseReport{
		Phase:  phase,
		Events: events,
		Viewer: access.Kind,
	}, nil
}

// hostedPhase 查找阶段并校验主持人权限
func (s *reportService) hostedPhase(ctx context.Context, actorID, gameID, phaseID uint) (*models.GamePhase, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		return nil, ErrNotHost
	}
	phase, err := s.phaseRepo.FindByID(ctx, phaseID)
	if err != nil || phase.GameID != gameID {
		return nil, ErrPhaseNotFound
	}
	return phase, nil
}

// hostedEvent 查找事件并校验主持人权限
func (s *reportService) hostedEvent(ctx context.Context, actorID, gameID, eventID uint) (*models.PhaseEvent, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		return nil, ErrNotHost
	}
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}
	phase, err := s.phaseRepo.FindByID(ctx, event.PhaseID)
	if err != nil || phase.GameID != gameID {
		return nil, ErrEventNotFound
	}
	return event, nil
}
