package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrTileNotFound, "坐标 (3, -2)")
	suite.Equal(ErrTileNotFound, err.Code)
	suite.Equal("地块不存在", err.Message)
	suite.Equal("坐标 (3, -2)", err.Details)

	// 多个详情用分号拼接
	err = New(ErrDatabaseConnect, "连接失败", "主机: localhost")
	suite.Equal("连接失败; 主机: localhost", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInsufficientMetal, "需要 %d，当前 %d", 20, 5)
	suite.Equal(ErrInsufficientMetal, err.Code)
	suite.Equal("需要 20，当前 5", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	original := errors.New("原始错误")
	wrapped := Wrap(original, ErrDatabaseQuery)
	suite.NotNil(wrapped)
	suite.Equal(ErrDatabaseQuery, wrapped.Code)
	suite.Equal(original, wrapped.Unwrap())
	suite.Equal("原始错误", wrapped.Details)

	// 包装nil返回nil
	suite.Nil(Wrap(nil, ErrUnknown))

	// 已是应用错误时保留原始错误码
	inner := New(ErrTradeExpired)
	rewrapped := Wrap(inner, ErrDatabaseQuery)
	suite.Equal(ErrTradeExpired, rewrapped.Code)
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrNotAdjacent)
	suite.True(Is(err, ErrNotAdjacent))
	suite.False(Is(err, ErrTileOwned))
	suite.False(Is(nil, ErrNotAdjacent))
	suite.False(Is(errors.New("普通错误"), ErrNotAdjacent))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrorCode(0), GetCode(nil))
	suite.Equal(ErrSelfTarget, GetCode(New(ErrSelfTarget)))
	suite.Equal(ErrUnknown, GetCode(errors.New("普通错误")))
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	suite.Equal(400, New(ErrInvalidParam).HTTPStatus())
	suite.Equal(404, New(ErrAgentNotFound).HTTPStatus())
	suite.Equal(404, New(ErrTileNotFound).HTTPStatus())
	suite.Equal(409, New(ErrAlreadyExists).HTTPStatus())
	suite.Equal(401, New(ErrTokenInvalid).HTTPStatus())
	// 行动前置条件不满足统一返回422
	suite.Equal(422, New(ErrInsufficientFood).HTTPStatus())
	suite.Equal(422, New(ErrTradeBalance).HTTPStatus())
	suite.Equal(503, New(ErrDatabaseConnect).HTTPStatus())
	suite.Equal(500, New(ErrUnknown).HTTPStatus())
}

// 测试错误消息格式
func (suite *ErrorsTestSuite) TestErrorString() {
	err := New(ErrTileOwned)
	suite.Equal("[2001] 地块已有归属", err.Error())

	err = New(ErrTileOwned, "坐标 (1, 0)")
	suite.Equal("[2001] 地块已有归属: 坐标 (1, 0)", err.Error())
}

func TestErrorsTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
