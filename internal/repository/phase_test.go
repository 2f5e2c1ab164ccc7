package repository

import (
	"context"
	"testing"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// PhaseRepositoryTestSuite 阶段仓储测试套件
type PhaseRepositoryTestSuite struct {
	suite.Suite
	db        *gorm.DB
	phaseRepo PhaseRepository
	eventRepo EventRepository
	game      *models.Game
}

func (suite *PhaseRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.phaseRepo = NewPhaseRepository(suite.db)
	suite.eventRepo = NewEventRepository(suite.db)

	host := CreateTestUser(suite.T(), suite.db, "phasehost")
	suite.game = CreateTestGame(suite.T(), suite.db, host.ID, "phasegame")
}

func (suite *PhaseRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestPhaseRepository_CreateAndFind 测试创建和查找阶段
func (suite *PhaseRepositoryTestSuite) TestPhaseRepository_CreateAndFind() {
	ctx := context.Background()

	phase := &models.GamePhase{
		GameID:    suite.game.ID,
		Time:      models.PhaseTimeDay,
		DayNumber: 1,
	}
	err := suite.phaseRepo.Create(ctx, phase)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), phase.ID)
	assert.False(suite.T(), phase.StartedAt.IsZero())

	found, err := suite.phaseRepo.FindByID(ctx, phase.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "DAY 1", found.Label())
}

// TestPhaseRepository_FindLatest 测试查找最新阶段
func (suite *PhaseRepositoryTestSuite) TestPhaseRepository_FindLatest() {
	ctx := context.Background()

	day1 := &models.GamePhase{GameID: suite.game.ID, Time: models.PhaseTimeDay, DayNumber: 1}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, day1))

	nextTime, nextDay := day1.Next()
	assert.Equal(suite.T(), models.PhaseTimeNight, nextTime)
	assert.Equal(suite.T(), 1, nextDay)

	night1 := &models.GamePhase{GameID: suite.game.ID, Time: nextTime, DayNumber: nextDay}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, night1))

	latest, err := suite.phaseRepo.FindLatest(ctx, suite.game.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), night1.ID, latest.ID)

	phases, err := suite.phaseRepo.FindByGame(ctx, suite.game.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), phases, 2)
	assert.Equal(suite.T(), day1.ID, phases[0].ID)
}

// TestPhaseRepository_UpdateCharacterStatus 测试更新角色状态快照
func (suite *PhaseRepositoryTestSuite) TestPhaseRepository_UpdateCharacterStatus() {
	ctx := context.Background()

	phase := &models.GamePhase{GameID: suite.game.ID, Time: models.PhaseTimeDay, DayNumber: 1}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, phase))

	status := models.JSONMap{"1": "ALIVE", "2": "DEAD"}
	err := suite.phaseRepo.UpdateCharacterStatus(ctx, phase.ID, status)
	assert.NoError(suite.T(), err)

	found, err := suite.phaseRepo.FindByID(ctx, phase.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "DEAD", found.CharacterStatus["2"])
}

// TestEventRepository_DraftFilter 测试草稿过滤
func (suite *PhaseRepositoryTestSuite) TestEventRepository_DraftFilter() {
	ctx := context.Background()

	phase := &models.GamePhase{GameID: suite.game.ID, Time: models.PhaseTimeNight, DayNumber: 1}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, phase))

	draft := &models.PhaseEvent{
		PhaseID:  phase.ID,
		Draft:    true,
		Template: "{actor} 袭击了 {target}",
	}
	assert.NoError(suite.T(), suite.eventRepo.Create(ctx, draft))

	published := &models.PhaseEvent{
		PhaseID:  phase.ID,
		Draft:    false,
		Template: "夜幕降临",
	}
	assert.NoError(suite.T(), suite.eventRepo.Create(ctx, published))

	// 含草稿（主持人视角）
	all, err := suite.eventRepo.FindByPhase(ctx, phase.ID, true)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)

	// 不含草稿（玩家视角）
	visible, err := suite.eventRepo.FindByPhase(ctx, phase.ID, false)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), visible, 1)
	assert.Equal(suite.T(), "夜幕降临", visible[0].Template)
}

// TestEventRepository_PublishByPhase 测试发布阶段战报（幂等）
func (suite *PhaseRepositoryTestSuite) TestEventRepository_PublishByPhase() {
	ctx := context.Background()

	phase := &models.GamePhase{GameID: suite.game.ID, Time: models.PhaseTimeNight, DayNumber: 1}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, phase))

	for i := 0; i < 3; i++ {
		event := &models.PhaseEvent{
			PhaseID:  phase.ID,
			Draft:    true,
			Template: "草稿事件",
		}
		assert.NoError(suite.T(), suite.eventRepo.Create(ctx, event))
	}

	published, err := suite.eventRepo.PublishByPhase(ctx, phase.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), published)

	events, err := suite.eventRepo.FindByPhase(ctx, phase.ID, false)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), events, 3)
	for _, e := range events {
		assert.True(suite.T(), e.IsPublished())
		assert.NotNil(suite.T(), e.PublishedAt)
	}

	// 重复发布不影响已发布的事件
	published, err = suite.eventRepo.PublishByPhase(ctx, phase.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), published)
}

// TestEventRepository_Delete 测试删除草稿事件
func (suite *PhaseRepositoryTestSuite) TestEventRepository_Delete() {
	ctx := context.Background()

	phase := &models.GamePhase{GameID: suite.game.ID, Time: models.PhaseTimeDay, DayNumber: 2}
	assert.NoError(suite.T(), suite.phaseRepo.Create(ctx, phase))

	event := &models.PhaseEvent{PhaseID: phase.ID, Draft: true, Template: "误填事件"}
	assert.NoError(suite.T(), suite.eventRepo.Create(ctx, event))

	assert.NoError(suite.T(), suite.eventRepo.Delete(ctx, event.ID))

	_, err := suite.eventRepo.FindByID(ctx, event.ID)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "事件不存在")
}

func TestPhaseRepositorySuite(t *testing.T) {
	suite.Run(t, new(PhaseRepositoryTestSuite))
}
