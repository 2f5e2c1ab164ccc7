package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"github.com/JayPixl/ocmafia-old-sub000/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrGameNotFound       = errors.New("游戏不存在")
	ErrNotHost            = errors.New("只有主持人可以执行该操作")
	ErrGameNotEnlisting   = errors.New("游戏不在报名阶段")
	ErrGameNotOngoing     = errors.New("游戏未在进行中")
	ErrGameAlreadyOngoing = errors.New("游戏已经开始")
	ErrGameCompleted      = errors.New("游戏已结束")
	ErrNoParticipants     = errors.New("没有报名的角色")
	ErrCharacterEnlisted  = errors.New("角色已报名该游戏")
	ErrGameFull           = errors.New("游戏人数已满")
	ErrHostCannotEnlist   = errors.New("主持人不能报名自己主持的游戏")
	ErrLastHost           = errors.New("不能移除最后一位主持人")
)

// gameService 游戏服务实现
type gameService struct {
	db            *gorm.DB
	gameRepo      repository.GameRepository
	phaseRepo     repository.PhaseRepository
	characterRepo repository.CharacterRepository
	roomRepo      repository.ChatRoomRepository
	log           *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(
	db *gorm.DB,
	gameRepo repository.GameRepository,
	phaseRepo repository.PhaseRepository,
	characterRepo repository.CharacterRepository,
	roomRepo repository.ChatRoomRepository,
	log *zap.Logger,
) GameService {
	return &gameService{
		db:            db,
		gameRepo:      gameRepo,
		phaseRepo:     phaseRepo,
		characterRepo: characterRepo,
		roomRepo:      roomRepo,
		log:           log,
	}
}

// CreateGame 创建游戏
// 创建者自动成为主持人，系统保留房间在同一事务内创建
func (s *gameService) CreateGame(ctx context.Context, creatorID uint, req *CreateGameRequest) (*models.Game, error) {
	slug := utils.GenerateSlug(req.Name)
	if slug == "" {
		slug = "game"
	}
	// slug冲突时追加时间戳
	if existing, _ := s.gameRepo.FindBySlug(ctx, slug); existing != nil {
		slug = fmt.Sprintf("%s-%d", slug, time.Now().Unix())
	}

	game := &models.Game{
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.GameStatusEnlisting,
		MaxPlayers:  req.MaxPlayers,
		RoleList:    models.StringList(req.RoleList),
	}
	if game.MaxPlayers <= 0 {
		game.MaxPlayers = 12
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	txGameRepo := s.gameRepo.WithTx(tx).(repository.GameRepository)
	txRoomRepo := s.roomRepo.WithTx(tx).(repository.ChatRoomRepository)

	if err := txGameRepo.Create(ctx, game); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("创建游戏失败: %w", err)
	}

	if err := txGameRepo.AddHost(ctx, &models.GameHost{GameID: game.ID, UserID: creatorID}); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("添加主持人失败: %w", err)
	}

	// 系统保留房间：赛前大厅、会议室、赛后大厅
	systemRooms := []struct {
		roomType models.RoomType
		name     string
	}{
		{models.RoomTypePreGame, "赛前大厅"},
		{models.RoomTypeMeetingRoom, "会议室"},
		{models.RoomTypePostGame, "赛后大厅"},
	}
	for _, r := range systemRooms {
		room := &models.ChatRoom{
			GameID: game.ID,
			Type:   r.roomType,
			Name:   r.name,
		}
		if err := txRoomRepo.Create(ctx, room); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("创建系统聊天室失败: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	s.log.Info("Game created",
		zap.Uint("game_id", game.ID),
		zap.String("slug", game.Slug),
		zap.Uint("creator_id", creatorID))
	return game, nil
}

// GetGame 获取游戏详情（带全部关联）
func (s *gameService) GetGame(ctx context.Context, gameID uint) (*models.Game, error) {
	game, err := s.gameRepo.FindByIDFull(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// GetGameBySlug 根据slug获取游戏
func (s *gameService) GetGameBySlug(ctx context.Context, slug string) (*models.Game, error) {
	game, err := s.gameRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// ListGames 获取游戏列表
func (s *gameService) ListGames(ctx context.Context, status models.GameStatus, page, pageSize int) ([]*models.Game, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	games, err := s.gameRepo.GetAll(ctx, status, pagination)
	if err != nil {
		return nil, 0, fmt.Errorf("查询游戏列表失败: %w", err)
	}
	return games, pagination.Total, nil
}

// AddHost 添加共同主持人
func (s *gameService) AddHost(ctx context.Context, actorID, gameID, userID uint) error {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return err
	}
	if game.HostedBy(userID) {
		return nil
	}
	if err := s.gameRepo.AddHost(ctx, &models.GameHost{GameID: gameID, UserID: userID}); err != nil {
		return fmt.Errorf("添加主持人失败: %w", err)
	}
	s.log.Info("Host added", zap.Uint("game_id", gameID), zap.Uint("user_id", userID))
	return nil
}

// RemoveHost 移除共同主持人
// 必须保留至少一位主持人
func (s *gameService) RemoveHost(ctx context.Context, actorID, gameID, userID uint) error {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return err
	}
	if !game.HostedBy(userID) {
		return nil
	}
	if len(game.Hosts) <= 1 {
		return ErrLastHost
	}
	if err := s.gameRepo.RemoveHost(ctx, gameID, userID); err != nil {
		return fmt.Errorf("移除主持人失败: %w", err)
	}
	s.log.Info("Host removed", zap.Uint("game_id", gameID), zap.Uint("user_id", userID))
	return nil
}

// JoinGame 角色报名游戏
// 只在报名阶段开放，主持人不能报名自己的游戏
func (s *gameService) JoinGame(ctx context.Context, userID, gameID, characterID uint) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if !game.IsEnlisting() {
		return ErrGameNotEnlisting
	}
	if game.HostedBy(userID) {
		return ErrHostCannotEnlist
	}

	character, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		return ErrCharacterNotFound
	}
	if character.OwnerID != userID {
		return ErrNotCharacterOwner
	}
	if game.HasParticipant(characterID) {
		return ErrCharacterEnlisted
	}
	if len(game.Participants) >= game.MaxPlayers {
		return ErrGameFull
	}

	if err := s.gameRepo.AddParticipant(ctx, &models.GameParticipant{
		GameID:      gameID,
		CharacterID: characterID,
	}); err != nil {
		return fmt.Errorf("报名失败: %w", err)
	}

	s.log.Info("Character joined game",
		zap.Uint("game_id", gameID),
		zap.Uint("character_id", characterID))
	return nil
}

// LeaveGame 角色退出游戏（仅报名阶段）
func (s *gameService) LeaveGame(ctx context.Context, userID, gameID, characterID uint) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if !game.IsEnlisting() {
		return ErrGameNotEnlisting
	}

	character, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		return ErrCharacterNotFound
	}
	if character.OwnerID != userID {
		return ErrNotCharacterOwner
	}

	if err := s.gameRepo.RemoveParticipant(ctx, gameID, characterID); err != nil {
		return fmt.Errorf("退出游戏失败: %w", err)
	}
	return nil
}

// StartGame 开始游戏
// 按身份列表洗牌分配，创建DAY 1阶段并设为当前，状态转为进行中
func (s *gameService) StartGame(ctx context.Context, actorID, gameID uint) (*models.Game, error) {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	switch game.Status {
	case models.GameStatusOngoing:
		return nil, ErrGameAlreadyOngoing
	case models.GameStatusCompleted:
		return nil, ErrGameCompleted
	}

	participants, err := s.gameRepo.FindParticipants(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("查询参与者失败: %w", err)
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	roles := assignRoles(game.RoleList, len(participants))

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	txGameRepo := s.gameRepo.WithTx(tx).(repository.GameRepository)
	txPhaseRepo := s.phaseRepo.WithTx(tx).(repository.PhaseRepository)

	for i, p := range participants {
		if err := txGameRepo.UpdateParticipantRole(ctx, p.ID, roles[i]); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("分配身份失败: %w", err)
		}
	}

	// DAY 1阶段，所有角色初始状态为存活
	status := models.JSONMap{}
	for _, p := range participants {
		status[fmt.Sprintf("%d", p.CharacterID)] = "ALIVE"
	}
	phase := &models.GamePhase{
		GameID:          gameID,
		Time:            models.PhaseTimeDay,
		DayNumber:       1,
		CharacterStatus: status,
		StartedAt:       time.Now(),
	}
	if err := txPhaseRepo.Create(ctx, phase); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("创建阶段失败: %w", err)
	}

	now := time.Now()
	game.Status = models.GameStatusOngoing
	game.CurrentPhaseID = &phase.ID
	game.StartedAt = &now
	if err := txGameRepo.Update(ctx, game); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("更新游戏状态失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	s.log.Info("Game started",
		zap.Uint("game_id", gameID),
		zap.Int("participants", len(participants)))
	return s.gameRepo.FindByIDFull(ctx, gameID)
}

// AdvancePhase 推进阶段（昼->夜同天，夜->昼天数+1）
// 被取代的阶段不再修改，新阶段继承上一阶段的角色状态
func (s *gameService) AdvancePhase(ctx context.Context, actorID, gameID uint) (*models.GamePhase, error) {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsOngoing() {
		return nil, ErrGameNotOngoing
	}

	current, err := s.phaseRepo.FindLatest(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("查询当前阶段失败: %w", err)
	}
	nextTime, nextDay := current.Next()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	txGameRepo := s.gameRepo.WithTx(tx).(repository.GameRepository)
	txPhaseRepo := s.phaseRepo.WithTx(tx).(repository.PhaseRepository)

	next := &models.GamePhase{
		GameID:          gameID,
		Time:            nextTime,
		DayNumber:       nextDay,
		CharacterStatus: current.CharacterStatus,
		StartedAt:       time.Now(),
	}
	if err := txPhaseRepo.Create(ctx, next); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("创建阶段失败: %w", err)
	}
	if err := txGameRepo.SetCurrentPhase(ctx, gameID, next.ID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("更新当前阶段失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	s.log.Info("Phase advanced",
		zap.Uint("game_id", gameID),
		zap.String("phase", next.Label()))
	return next, nil
}

// UpdateCharacterStatus 更新阶段的角色状态（存活/死亡/自定义）
func (s *gameService) UpdateCharacterStatus(ctx context.Context, actorID, gameID, phaseID uint, status map[string]interface{}) error {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return err
	}

	phase, err := s.phaseRepo.FindByID(ctx, phaseID)
	if err != nil {
		return fmt.Errorf("阶段不存在")
	}
	if phase.GameID != game.ID {
		return fmt.Errorf("阶段不属于该游戏")
	}

	merged := models.JSONMap{}
	for k, v := range phase.CharacterStatus {
		merged[k] = v
	}
	for k, v := range status {
		merged[k] = v
	}

	if err := s.phaseRepo.UpdateCharacterStatus(ctx, phaseID, merged); err != nil {
		return fmt.Errorf("更新角色状态失败: %w", err)
	}
	return nil
}

// CompleteGame 结束游戏
func (s *gameService) CompleteGame(ctx context.Context, actorID, gameID uint, winnerFaction string) (*models.Game, error) {
	game, err := s.hostedGame(ctx, actorID, gameID)
	if err != nil {
		return nil, err
	}
	if game.IsCompleted() {
		return game, nil
	}
	if !game.IsOngoing() {
		return nil, ErrGameNotOngoing
	}

	now := time.Now()
	game.Status = models.GameStatusCompleted
	game.WinnerFaction = winnerFaction
	game.CompletedAt = &now
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("更新游戏状态失败: %w", err)
	}

	s.log.Info("Game completed",
		zap.Uint("game_id", gameID),
		zap.String("winner", winnerFaction))
	return game, nil
}

// hostedGame 查找游戏并校验主持人权限
func (s *gameService) hostedGame(ctx context.Context, actorID, gameID uint) (*models.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		// 全局管理员可以越过主持人名单
		if admin, _ := s.isAdmin(ctx, actorID); !admin {
			return nil, ErrNotHost
		}
	}
	return game, nil
}

// isAdmin 检查用户是否为全局管理员
func (s *gameService) isAdmin(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// assignRoles 洗牌分配身份
// 身份数量不足时多余的参与者拿到"村民"，多余的身份被丢弃
func assignRoles(roleList []string, count int) []string {
	shuffled := make([]string, len(roleList))
	copy(shuffled, roleList)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	roles := make([]string, count)
	for i := 0; i < count; i++ {
		if i < len(shuffled) {
			roles[i] = shuffled[i]
		} else {
			roles[i] = "村民"
		}
	}
	return roles
}
