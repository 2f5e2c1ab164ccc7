package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	services *Services
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db, suite.services = setupTestServices(suite.T())
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (suite *AuthServiceTestSuite) register(username string) *AuthResponse {
	resp, err := suite.services.Auth.Register(context.Background(), &RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	return resp
}

// TestRegister 注册即登录，重复注册冲突
func (suite *AuthServiceTestSuite) TestRegister() {
	ctx := context.Background()

	resp := suite.register("auth_user")
	assert.Equal(suite.T(), "auth_user", resp.User.Username)

	_, err := suite.services.Auth.Register(ctx, &RegisterRequest{
		Username:        "auth_user",
		Email:           "other@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.ErrorIs(suite.T(), err, ErrUserExists)

	// 非法用户名
	_, err = suite.services.Auth.Register(ctx, &RegisterRequest{
		Username:        "非法用户名",
		Email:           "cn@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.Error(suite.T(), err)
}

// TestLogin 用户名或邮箱都能登录，密码错误拒绝
func (suite *AuthServiceTestSuite) TestLogin() {
	ctx := context.Background()
	suite.register("login_user")

	resp, err := suite.services.Auth.Login(ctx, &LoginRequest{
		Account:  "login_user",
		Password: "secret123",
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.AccessToken)

	// 邮箱登录
	resp, err = suite.services.Auth.Login(ctx, &LoginRequest{
		Account:  "login_user@example.com",
		Password: "secret123",
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.AccessToken)

	// 密码错误
	_, err = suite.services.Auth.Login(ctx, &LoginRequest{
		Account:  "login_user",
		Password: "wrong-password",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	// 不存在的账号与密码错误表现一致
	_, err = suite.services.Auth.Login(ctx, &LoginRequest{
		Account:  "no_such_user",
		Password: "secret123",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

// TestValidateToken 访问令牌校验
func (suite *AuthServiceTestSuite) TestValidateToken() {
	ctx := context.Background()
	resp := suite.register("token_user")

	claims, err := suite.services.Auth.ValidateToken(ctx, resp.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.User.ID, claims.UserID)
	assert.Equal(suite.T(), "token_user", claims.Username)

	// 刷新令牌不能当访问令牌用
	_, err = suite.services.Auth.ValidateToken(ctx, resp.RefreshToken)
	assert.Error(suite.T(), err)

	_, err = suite.services.Auth.ValidateToken(ctx, "not-a-token")
	assert.Error(suite.T(), err)
}

// TestRefreshToken 刷新令牌换新访问令牌
func (suite *AuthServiceTestSuite) TestRefreshToken() {
	ctx := context.Background()
	resp := suite.register("refresh_user")

	refreshed, err := suite.services.Auth.RefreshToken(ctx, resp.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	claims, err := suite.services.Auth.ValidateToken(ctx, refreshed.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.User.ID, claims.UserID)

	// 访问令牌不能用来刷新
	_, err = suite.services.Auth.RefreshToken(ctx, resp.AccessToken)
	assert.Error(suite.T(), err)
}

// TestLogout 登出后会话失效
func (suite *AuthServiceTestSuite) TestLogout() {
	ctx := context.Background()
	resp := suite.register("logout_user")

	err := suite.services.Auth.Logout(ctx, resp.User.ID, resp.AccessToken)
	assert.NoError(suite.T(), err)

	// 登出后刷新令牌不再可用
	_, err = suite.services.Auth.RefreshToken(ctx, resp.RefreshToken)
	assert.Error(suite.T(), err)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
