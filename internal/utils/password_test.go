package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 密码哈希测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试哈希与验证
func (suite *PasswordTestSuite) TestHashAndVerify() {
	hash, err := HashPassword("s3cret-pass")
	suite.NoError(err)
	suite.True(strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("s3cret-pass", hash)
	suite.NoError(err)
	suite.True(ok)

	ok, err = VerifyPassword("wrong-pass", hash)
	suite.NoError(err)
	suite.False(ok)
}

// 测试相同密码产生不同哈希（盐随机）
func (suite *PasswordTestSuite) TestHashIsSalted() {
	h1, err := HashPassword("same-password")
	suite.NoError(err)
	h2, err := HashPassword("same-password")
	suite.NoError(err)
	suite.NotEqual(h1, h2)

	ok, err := VerifyPassword("same-password", h2)
	suite.NoError(err)
	suite.True(ok)
}

// 测试格式错误的哈希
func (suite *PasswordTestSuite) TestVerify_MalformedHash() {
	_, err := VerifyPassword("whatever", "not-a-hash")
	suite.Error(err)

	_, err = VerifyPassword("whatever", "$argon2i$v=19$m=65536,t=1,p=4$AAAA$BBBB")
	suite.Error(err)
}

func TestPasswordTestSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}
