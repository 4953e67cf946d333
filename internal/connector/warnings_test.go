package connector

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type WarningLogTestSuite struct {
	suite.Suite
}

func TestWarningLogTestSuite(t *testing.T) {
	suite.Run(t, new(WarningLogTestSuite))
}

func (suite *WarningLogTestSuite) TestKeepsMostRecent() {
	metrics := NewMetrics(prometheus.NewRegistry())
	log := NewWarningLog(3, logger.NewNop(), metrics)

	for i := 0; i < 5; i++ {
		log.Record(SourceMarkets, fmt.Errorf("failure %d", i))
	}

	recent := log.Recent()
	suite.Require().Len(recent, 3)
	suite.Equal("failure 2", recent[0].Message)
	suite.Equal("failure 4", recent[2].Message)
	suite.InDelta(5, testutil.ToFloat64(metrics.Warnings.WithLabelValues(SourceMarkets)), 0)
}

func (suite *WarningLogTestSuite) TestRecordsCode() {
	log := NewWarningLog(0, logger.NewNop(), NewMetrics(prometheus.NewRegistry()))

	log.Record(SourceBalances, errors.New(errors.ErrCodeStaleData, "stale"))
	log.Record(SourceBalances, nil)

	recent := log.Recent()
	suite.Require().Len(recent, 1)
	suite.Equal(errors.ErrCodeStaleData, recent[0].Code)
	suite.Equal(SourceBalances, recent[0].Source)
}
