package harbor

import (
	"testing"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (suite *SessionTestSuite) TestClientBeforeStart() {
	session := NewSession(time.Second, logger.NewNop())

	client, err := session.HTTPClient()
	suite.Nil(client)
	suite.True(errors.HasCode(err, errors.ErrCodeSessionClosed))
	suite.False(session.IsRunning())
}

func (suite *SessionTestSuite) TestStartAndStop() {
	session := NewSession(2*time.Second, logger.NewNop())
	session.Start()

	client, err := session.HTTPClient()
	suite.Require().NoError(err)
	suite.Equal(2*time.Second, client.Timeout)
	suite.True(session.IsRunning())

	session.Stop()
	suite.False(session.IsRunning())

	_, err = session.HTTPClient()
	suite.Error(err)
}

func (suite *SessionTestSuite) TestStopIsIdempotent() {
	session := NewSession(time.Second, logger.NewNop())

	suite.NotPanics(func() {
		session.Stop()
		session.Start()
		session.Stop()
		session.Stop()
	})
}

func (suite *SessionTestSuite) TestRestartReplacesClient() {
	session := NewSession(time.Second, logger.NewNop())
	session.Start()

	first, err := session.HTTPClient()
	suite.Require().NoError(err)

	session.Start()

	second, err := session.HTTPClient()
	suite.Require().NoError(err)
	suite.NotSame(first, second)

	session.Stop()
}
