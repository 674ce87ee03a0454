package testutil

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories a pricing test works against
type Stores struct {
	PlanRepo     *InMemoryPlanStore
	CouponRepo   *InMemoryCouponStore
	GiftCardRepo *InMemoryGiftCardStore
	TaxRepo      *InMemoryTaxStore
}

// BasePricingTestSuite provides common functionality for pricing test suites
type BasePricingTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	logger *logger.Logger
	config *config.Configuration
}

// SetupSuite is called once before running the tests in the suite
func (s *BasePricingTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNoopLogger()
}

// SetupTest is called before each test
func (s *BasePricingTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
}

// TearDownTest is called after each test
func (s *BasePricingTestSuite) TearDownTest() {
	s.stores = Stores{}
}

func (s *BasePricingTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:     NewInMemoryPlanStore(),
		CouponRepo:   NewInMemoryCouponStore(),
		GiftCardRepo: NewInMemoryGiftCardStore(),
		TaxRepo:      NewInMemoryTaxStore(),
	}
}

func (s *BasePricingTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BasePricingTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BasePricingTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BasePricingTestSuite) GetLogger() *logger.Logger {
	return s.logger
}
