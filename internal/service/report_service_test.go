package service

import (
	"context"
	"testing"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ReportServiceTestSuite 战报服务测试套件
type ReportServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	services *Services
	host     *models.User
	player   *models.User
	game     *models.Game
	phaseID  uint
}

func (suite *ReportServiceTestSuite) SetupTest() {
	suite.db, suite.services = setupTestServices(suite.T())
	suite.host = seedUser(suite.T(), suite.db, "reporthost", "user")
	suite.player = seedUser(suite.T(), suite.db, "reportplayer", "user")
	suite.game = seedGameWithRooms(suite.T(), suite.services, suite.host.ID, "report")

	ctx := context.Background()
	character := seedCharacter(suite.T(), suite.db, suite.player.ID, "夏洛克")
	assert.NoError(suite.T(), suite.services.Game.JoinGame(ctx, suite.player.ID, suite.game.ID, character.ID))

	started, err := suite.services.Game.StartGame(ctx, suite.host.ID, suite.game.ID)
	assert.NoError(suite.T(), err)
	suite.phaseID = *started.CurrentPhaseID
}

func (suite *ReportServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (suite *ReportServiceTestSuite) viewer(userID uint) *Viewer {
	v, err := suite.services.User.BuildViewer(context.Background(), userID)
	assert.NoError(suite.T(), err)
	return v
}

// TestCreateEvent 创建草稿事件（仅主持人）
func (suite *ReportServiceTestSuite) TestCreateEvent() {
	ctx := context.Background()

	event, err := suite.services.Report.CreateEvent(ctx, suite.host.ID, suite.game.ID, suite.phaseID, &EventRequest{
		Template: "{actor} 公布了线索",
		Clues:    []string{"带血的手套"},
	})
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), event.Draft)
	assert.Nil(suite.T(), event.PublishedAt)

	_, err = suite.services.Report.CreateEvent(ctx, suite.player.ID, suite.game.ID, suite.phaseID, &EventRequest{
		Template: "非主持人的事件",
	})
	assert.ErrorIs(suite.T(), err, ErrNotHost)
}

// TestDraftVisibility 草稿只有主持人可见
func (suite *ReportServiceTestSuite) TestDraftVisibility() {
	ctx := context.Background()

	_, err := suite.services.Report.CreateEvent(ctx, suite.host.ID, suite.game.ID, suite.phaseID, &EventRequest{
		Template: "隐藏的草稿",
	})
	assert.NoError(suite.T(), err)

	// 主持人看到草稿
	report, err := suite.services.Report.GetPhaseReport(ctx, suite.viewer(suite.host.ID), suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), ViewerHost, report.Viewer)
	assert.Len(suite.T(), report.Events, 1)

	// 参与者看不到
	report, err = suite.services.Report.GetPhaseReport(ctx, suite.viewer(suite.player.ID), suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), ViewerParticipant, report.Viewer)
	assert.Len(suite.T(), report.Events, 0)

	// 匿名旁观者也看不到
	report, err = suite.services.Report.GetPhaseReport(ctx, suite.viewer(0), suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), ViewerSpectator, report.Viewer)
	assert.Len(suite.T(), report.Events, 0)
}

// TestPublishEvent 发布是单向且幂等的
func (suite *ReportServiceTestSuite) TestPublishEvent() {
	ctx := context.Background()

	event, err := suite.services.Report.CreateEvent(ctx, suite.host.ID, suite.game.ID, suite.phaseID, &EventRequest{
		Template: "夜晚有人遇害",
	})
	assert.NoError(suite.T(), err)

	published, err := suite.services.Report.PublishEvent(ctx, suite.host.ID, suite.game.ID, event.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), published.Draft)
	assert.NotNil(suite.T(), published.PublishedAt)
	firstPublishedAt := *published.PublishedAt

	// 幂等：重复发布不报错也不改时间
	again, err := suite.services.Report.PublishEvent(ctx, suite.host.ID, suite.game.ID, event.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), firstPublishedAt.Unix(), again.PublishedAt.Unix())

	// 发布后所有人可见
	report, err := suite.services.Report.GetPhaseReport(ctx, suite.viewer(0), suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), report.Events, 1)

	// 发布后不能再修改或删除
	_, err = suite.services.Report.UpdateEvent(ctx, suite.host.ID, suite.game.ID, event.ID, &EventRequest{
		Template: "想改掉",
	})
	assert.ErrorIs(suite.T(), err, ErrEventAlreadyPublished)
	err = suite.services.Report.DeleteEvent(ctx, suite.host.ID, suite.game.ID, event.ID)
	assert.ErrorIs(suite.T(), err, ErrEventAlreadyPublished)
}

// TestPublishPhase 批量发布阶段战报
func (suite *ReportServiceTestSuite) TestPublishPhase() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := suite.services.Report.CreateEvent(ctx, suite.host.ID, suite.game.ID, suite.phaseID, &EventRequest{
			Template: "草稿",
		})
		assert.NoError(suite.T(), err)
	}

	published, err := suite.services.Report.PublishPhase(ctx, suite.host.ID, suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), published)

	// 幂等
	published, err = suite.services.Report.PublishPhase(ctx, suite.host.ID, suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), published)
}

// TestUpdateDraft 草稿可以修改和删除
func (suite *ReportServiceTestSuite) TestUpdateDraft() {
	ctx := context.Background()

	event, err := suite.services.Report.CreateEvent(ctx, suite.host.ID, suite.game.ID, suite.phaseID, &EventRequest{
		Template: "初稿",
	})
	assert.NoError(suite.T(), err)

	updated, err := suite.services.Report.UpdateEvent(ctx, suite.host.ID, suite.game.ID, event.ID, &EventRequest{
		Template: "修订稿",
		Clues:    []string{"新线索"},
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "修订稿", updated.Template)

	assert.NoError(suite.T(), suite.services.Report.DeleteEvent(ctx, suite.host.ID, suite.game.ID, event.ID))

	report, err := suite.services.Report.GetPhaseReport(ctx, suite.viewer(suite.host.ID), suite.game.ID, suite.phaseID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), report.Events, 0)
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}
