package connector_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/config"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/connector"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/harbor/harbortest"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/types"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const ethAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

type eventCollector struct {
	mu     sync.Mutex
	events []types.OrderEvent
}

func (e *eventCollector) Publish(_ context.Context, event types.OrderEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, event)

	return nil
}

func (e *eventCollector) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.events)
}

type ConnectorTestSuite struct {
	suite.Suite
	fake      *harbortest.Server
	collector *eventCollector
	connector *connector.Connector
}

func TestConnectorTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectorTestSuite))
}

func (suite *ConnectorTestSuite) SetupTest() {
	suite.fake = harbortest.NewServer(harbortest.Config{
		APIKey: "secret",
		Markets: []harbor.MarketInfo{
			{
				Symbol:         "ETH-USDC",
				BaseAsset:      "ETH",
				QuoteAsset:     "USDC",
				MinOrderSize:   decimal.RequireFromString("0.01"),
				PriceIncrement: decimal.RequireFromString("0.1"),
				SizeIncrement:  decimal.RequireFromString("0.01"),
				MakerFee:       decimal.Zero,
				TakerFee:       decimal.RequireFromString("0.001"),
			},
		},
		Balances: []harbor.BalanceInfo{
			{Asset: "USDC", Available: decimal.NewFromInt(5000), Total: decimal.NewFromInt(5000)},
		},
		InboundAddresses: nil,
	})
	suite.collector = &eventCollector{}
	suite.connector = suite.newConnector("secret")
}

func (suite *ConnectorTestSuite) TearDownTest() {
	suite.NoError(suite.connector.Stop())
	suite.fake.Close()
}

func (suite *ConnectorTestSuite) harborConfig(apiKey string) config.HarborConfig {
	cfg := config.Default().Harbor
	cfg.REST.BaseURI = suite.fake.URL()
	cfg.REST.APIPath = harbortest.DefaultAPIPath
	cfg.REST.RequestTimeout = 2 * time.Second
	cfg.REST.RequestsPerSecond = 0
	cfg.XNode.BaseURI = suite.fake.URL()
	cfg.XNode.APIPath = harbortest.DefaultXNodePath
	cfg.Websocket.URL = "wss://ws.harbor.example"
	cfg.APIKey = apiKey
	cfg.FromAddresses.ETH = ethAddress
	cfg.Polling.Markets = 50 * time.Millisecond
	cfg.Polling.Balances = 50 * time.Millisecond
	cfg.Polling.Fills = 20 * time.Millisecond
	cfg.Polling.AckTimeout = 2 * time.Second
	cfg.Polling.SubmitTimeout = time.Second

	return cfg
}

func (suite *ConnectorTestSuite) newConnector(apiKey string) *connector.Connector {
	return connector.New(connector.Options{
		Config:   suite.harborConfig(apiKey),
		Sink:     suite.collector,
		Logger:   logger.NewNop(),
		API:      nil,
		Registry: nil,
	})
}

func (suite *ConnectorTestSuite) TestStartRequiresAPIKey() {
	conn := suite.newConnector("")

	err := conn.Start(context.Background())
	suite.True(errors.IsAuthConfig(err))
	suite.False(conn.Started())
	suite.NoError(conn.Stop())
	suite.NoError(conn.Stop())
}

func (suite *ConnectorTestSuite) TestStartLoadsSnapshots() {
	suite.Require().NoError(suite.connector.Start(context.Background()))
	suite.True(suite.connector.Started())

	markets := suite.connector.GetMarkets()
	suite.Require().Len(markets, 1)
	suite.Equal("ETH-USDC", markets[0].Symbol)

	balances := suite.connector.GetBalances()
	suite.True(balances["USDC"].Available.Equal(decimal.NewFromInt(5000)))

	// Starting twice is a no-op.
	suite.NoError(suite.connector.Start(context.Background()))
}

func (suite *ConnectorTestSuite) TestBalancesFollowTheExchange() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	suite.fake.SetBalance(harbor.BalanceInfo{Asset: "ETH", Available: decimal.NewFromInt(1), Total: decimal.NewFromInt(2)})

	suite.Eventually(func() bool {
		_, ok := suite.connector.GetBalances()["ETH"]

		return ok
	}, 2*time.Second, 20*time.Millisecond)
}

func (suite *ConnectorTestSuite) TestFailedRefreshIsAWarning() {
	suite.fake.Fail(http.MethodGet, "/markets", http.StatusInternalServerError, map[string]any{"message": "down"})

	suite.Require().NoError(suite.connector.Start(context.Background()))
	suite.Empty(suite.connector.GetMarkets())

	warnings := suite.connector.Warnings()
	suite.Require().NotEmpty(warnings)
	suite.Equal(connector.SourceMarkets, warnings[0].Source)
	suite.Equal(errors.ErrCodeStaleData, warnings[0].Code)

	suite.fake.ClearFailures()
	suite.Eventually(func() bool {
		return len(suite.connector.GetMarkets()) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func (suite *ConnectorTestSuite) TestOperationsBeforeStart() {
	_, err := suite.connector.PlaceOrder(context.Background(), types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideBuy,
		Price:  decimal.NewFromInt(2000),
		Size:   decimal.NewFromInt(1),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeNotStarted))

	_, err = suite.connector.InboundAddresses(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNotStarted))

	suite.Empty(suite.connector.GetMarkets())
	suite.Empty(suite.connector.GetBalances())
}

func (suite *ConnectorTestSuite) TestOrderLifecycle() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	id, err := suite.connector.PlaceOrder(context.Background(), types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideBuy,
		Price:  decimal.NewFromInt(2000),
		Size:   decimal.NewFromInt(1),
	})
	suite.Require().NoError(err)

	suite.Eventually(func() bool {
		order, err := suite.connector.GetOrderStatus(id)

		return err == nil && order.State == types.OrderStateOpen
	}, 2*time.Second, 10*time.Millisecond)

	suite.Require().True(suite.fake.FillOrder(id, decimal.RequireFromString("0.4")))
	suite.Eventually(func() bool {
		order, err := suite.connector.GetOrderStatus(id)

		return err == nil && order.State == types.OrderStatePartiallyFilled
	}, 2*time.Second, 10*time.Millisecond)

	suite.Require().True(suite.fake.FillOrder(id, decimal.NewFromInt(1)))
	suite.Eventually(func() bool {
		order, err := suite.connector.GetOrderStatus(id)

		return err == nil && order.State == types.OrderStateFilled
	}, 2*time.Second, 10*time.Millisecond)

	// The FILLED observation evicted the order.
	_, err = suite.connector.GetOrderStatus(id)
	suite.True(errors.IsUnknownOrder(err))
	suite.GreaterOrEqual(suite.collector.count(), 4)
}

func (suite *ConnectorTestSuite) TestCancelThroughExchange() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	id, err := suite.connector.PlaceOrder(context.Background(), types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideSell,
		Price:  decimal.NewFromInt(2100),
		Size:   decimal.RequireFromString("0.5"),
	})
	suite.Require().NoError(err)

	suite.Eventually(func() bool {
		return len(suite.connector.OpenOrders()) == 1 && suite.connector.OpenOrders()[0].ExchangeID() != ""
	}, 2*time.Second, 10*time.Millisecond)

	suite.Require().NoError(suite.connector.CancelOrder(context.Background(), id))

	remote, ok := suite.fake.Order(id)
	suite.Require().True(ok)
	suite.Equal(harbor.OrderStatusCanceled, remote.Status)

	order, err := suite.connector.GetOrderStatus(id)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStateCanceled, order.State)
}

func (suite *ConnectorTestSuite) TestRejectedOrder() {
	suite.Require().NoError(suite.connector.Start(context.Background()))
	suite.fake.RejectOrders("insufficient balance")

	id, err := suite.connector.PlaceOrder(context.Background(), types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideBuy,
		Price:  decimal.NewFromInt(2000),
		Size:   decimal.NewFromInt(100),
	})
	suite.Require().NoError(err)

	suite.Eventually(func() bool {
		order, err := suite.connector.GetOrderStatus(id)

		return err == nil && order.State == types.OrderStateFailed && order.RejectReason == "insufficient balance"
	}, 2*time.Second, 10*time.Millisecond)
}

func (suite *ConnectorTestSuite) TestStopWaitsForInflightSubmissions() {
	suite.Require().NoError(suite.connector.Start(context.Background()))
	suite.fake.HoldOrders()

	id, err := suite.connector.PlaceOrder(context.Background(), types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideBuy,
		Price:  decimal.NewFromInt(2000),
		Size:   decimal.NewFromInt(1),
	})
	suite.Require().NoError(err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		suite.fake.ReleaseOrders()
	}()

	suite.Require().NoError(suite.connector.Stop())
	suite.False(suite.connector.Started())

	order, err := suite.connector.GetOrderStatus(id)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStateOpen, order.State)
}

func (suite *ConnectorTestSuite) TestStopRacingPlaceOrder() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	req := types.PlaceOrderRequest{
		Symbol: "ETH-USDC",
		Side:   types.OrderSideBuy,
		Price:  decimal.NewFromInt(2000),
		Size:   decimal.RequireFromString("0.1"),
	}

	const submitters = 8

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)

	start := make(chan struct{})

	for i := 0; i < submitters; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			id, err := suite.connector.PlaceOrder(context.Background(), req)
			if err != nil {
				suite.True(errors.HasCode(err, errors.ErrCodeNotStarted), "got %v", err)

				return
			}

			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}()
	}

	close(start)
	suite.Require().NoError(suite.connector.Stop())
	wg.Wait()

	// Every accepted order finished its submission before the session closed.
	for _, id := range ids {
		order, err := suite.connector.GetOrderStatus(id)
		suite.Require().NoError(err)
		suite.Equal(types.OrderStateOpen, order.State, "order %s", id)
	}

	_, err := suite.connector.PlaceOrder(context.Background(), req)
	suite.True(errors.HasCode(err, errors.ErrCodeNotStarted))
}

func (suite *ConnectorTestSuite) TestDepositInstructions() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	instructions, err := suite.connector.DepositInstructions(context.Background())
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"ETH": ethAddress}, instructions.FromAddresses)
	suite.Equal("wss://ws.harbor.example", instructions.WebsocketURL)
	suite.Contains(instructions.InboundAddresses, "result")
}

func (suite *ConnectorTestSuite) TestWithdrawValidation() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	_, err := suite.connector.Withdraw(context.Background(), harbor.Object{"asset": "ETH"})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	result, err := suite.connector.Withdraw(context.Background(), harbor.Object{
		"destination": ethAddress,
		"asset":       "ETH",
		"amount":      "1",
		"gasAsset":    "ETH",
		"gasAmount":   "0.01",
	})
	suite.Require().NoError(err)
	suite.Equal("pending", result["status"])
}

func (suite *ConnectorTestSuite) TestPassthroughErrorsAreClassified() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	_, err := suite.connector.WithdrawStatus(context.Background(), "missing")
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeNotFound))

	suite.fake.Fail(http.MethodGet, "/outbound_fees", http.StatusBadGateway, nil)

	_, err = suite.connector.OutboundFees(context.Background())
	suite.True(errors.IsTransientNetwork(err))
}

func (suite *ConnectorTestSuite) TestMetricsAreRegistered() {
	suite.Require().NoError(suite.connector.Start(context.Background()))

	families, err := suite.connector.Registry().Gather()
	suite.Require().NoError(err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}

	suite.Contains(names, "harbor_connector_refreshes_total")
	suite.Contains(names, "harbor_connector_last_refresh_timestamp_seconds")
}
