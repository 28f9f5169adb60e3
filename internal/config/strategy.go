package config

import "github.com/yourusername/clever-edge/internal/models"

// StrategyConfig is one versioned parameter set for the whole pipeline.
// Weight tables and thresholds are data; versions differ only by values.
type StrategyConfig struct {
	Version     string             `mapstructure:"version"`
	Weights     map[string]float64 `mapstructure:"weights" validate:"required,min=1,weights"`
	Estimator   EstimatorConfig    `mapstructure:"estimator"`
	Discovery   DiscoveryConfig    `mapstructure:"discovery"`
	Risk        RiskConfig         `mapstructure:"risk"`
	Portfolio   PortfolioConfig    `mapstructure:"portfolio"`
	Simulation  SimulationConfig   `mapstructure:"simulation"`
	WalkForward WalkForwardConfig  `mapstructure:"walk_forward"`
	Gate        GateConfig         `mapstructure:"gate"`
}

// EstimatorConfig configures composite scoring and the Bayesian update
type EstimatorConfig struct {
	ClampLow                 float64 `mapstructure:"clamp_low" validate:"gte=0,lt=1"`
	ClampHigh                float64 `mapstructure:"clamp_high" validate:"gt=0,lte=1,gtfield=ClampLow"`
	BoostConstant            float64 `mapstructure:"boost_constant" validate:"gte=0"`
	MinObservations          int     `mapstructure:"min_observations" validate:"gte=1"`
	// PriorVariance floors the series-derived prior variance
	PriorVariance            float64 `mapstructure:"prior_variance" validate:"gt=0"`
	CompositeConfidenceScale float64 `mapstructure:"composite_confidence_scale" validate:"gte=0,lte=1"`
	BinarizeThreshold        float64 `mapstructure:"binarize_threshold" validate:"gt=0,lt=1"`
}

// DiscoveryConfig configures pattern mining thresholds
type DiscoveryConfig struct {
	DistanceThreshold     float64 `mapstructure:"distance_threshold" validate:"gt=0"`
	MinClusterSize        int     `mapstructure:"min_cluster_size" validate:"gte=1"`
	HighWinRate           float64 `mapstructure:"high_win_rate" validate:"gt=0.5,lte=1"`
	LowWinRate            float64 `mapstructure:"low_win_rate" validate:"gte=0,lt=0.5"`
	DominanceThreshold    float64 `mapstructure:"dominance_threshold" validate:"gt=0,lt=1"`
	BinarizeThreshold     float64 `mapstructure:"binarize_threshold" validate:"gt=0,lt=1"`
	MinPairSupport        int     `mapstructure:"min_pair_support" validate:"gte=1"`
	PairWinRate           float64 `mapstructure:"pair_win_rate" validate:"gt=0.5,lte=1"`
	CalibrationConstant   float64 `mapstructure:"calibration_constant" validate:"gt=0"`
	MaxConfidence         float64 `mapstructure:"max_confidence" validate:"gt=0,lte=1"`
	CancelCheckEvery      int     `mapstructure:"cancel_check_every" validate:"gte=0"`
	CacheTTLMinutes       int     `mapstructure:"cache_ttl_minutes" validate:"gte=0"`
}

// RiskConfig holds the constants of the adaptive sizing formula
type RiskConfig struct {
	K1              float64 `mapstructure:"k1" validate:"gte=0"`
	K2              float64 `mapstructure:"k2" validate:"gte=0"`
	VaRCap          float64 `mapstructure:"var_cap" validate:"gt=0"`
	BaseFractionCap float64 `mapstructure:"base_fraction_cap" validate:"gt=0,lte=1"`
	MinFraction     float64 `mapstructure:"min_fraction" validate:"gte=0,lte=1"`
	MaxFraction     float64 `mapstructure:"max_fraction" validate:"gt=0,lte=1,gtefield=MinFraction"`
	NCalibration    int     `mapstructure:"n_calibration" validate:"gte=1"`
	RecentWindow    int     `mapstructure:"recent_window" validate:"gte=1"`
	VigHeadroom     float64 `mapstructure:"vig_headroom" validate:"gte=0,lt=1"`
}

// BucketConfig is one named slice of the budget
type BucketConfig struct {
	Name     string  `mapstructure:"name" validate:"required"`
	Cap      float64 `mapstructure:"cap" validate:"gte=0"`
	MaxCount int     `mapstructure:"max_count" validate:"gte=0"`
}

// PortfolioConfig configures bucketed allocation and hedging
type PortfolioConfig struct {
	Bankroll               float64        `mapstructure:"bankroll" validate:"gt=0"`
	Buckets                []BucketConfig `mapstructure:"buckets" validate:"required,min=1,dive"`
	MaxCorrelationExposure float64        `mapstructure:"max_correlation_exposure" validate:"gt=0,lte=1"`
	StakePrecision         int32          `mapstructure:"stake_precision" validate:"gte=0,lte=8"`
}

// SimulationConfig configures Monte Carlo validation
type SimulationConfig struct {
	Trials               int     `mapstructure:"trials" validate:"gte=1"`
	MinTrials            int     `mapstructure:"min_trials" validate:"gte=1"`
	Seed                 int64   `mapstructure:"seed"`
	BlackSwanProbability float64 `mapstructure:"black_swan_probability" validate:"gte=0,lte=1"`
	BlackSwanDiscount    float64 `mapstructure:"black_swan_discount" validate:"gte=0,lte=1"`
	BatchSize            int     `mapstructure:"batch_size" validate:"gte=0"`
}

// WalkForwardConfig configures rolling train/test validation
type WalkForwardConfig struct {
	TrainSize    int     `mapstructure:"train_size" validate:"gte=1"`
	TestSize     int     `mapstructure:"test_size" validate:"gte=1"`
	StepSize     int     `mapstructure:"step_size" validate:"gte=0"`
	MinStability float64 `mapstructure:"min_stability" validate:"gte=0,lte=1"`
}

// GateConfig sets the acceptance thresholds for a simulated batch
type GateConfig struct {
	MinProfitProbability float64 `mapstructure:"min_profit_probability" validate:"gte=0,lte=1"`
	MinSharpe            float64 `mapstructure:"min_sharpe"`
	MaxVaR95             float64 `mapstructure:"max_var_95" validate:"gte=0"`
}

// DefaultWeights returns the twelve-factor composite weight table
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		models.FactorMomentum:      0.12,
		models.FactorFatigue:       0.10,
		models.FactorRivalry:       0.08,
		models.FactorClutch:        0.09,
		models.FactorInjuries:      0.11,
		models.FactorSeasonal:      0.07,
		models.FactorHomeAway:      0.10,
		models.FactorSimulation:    0.13,
		models.FactorRosterQuality: 0.08,
		models.FactorChemistry:     0.06,
		models.FactorExperience:    0.03,
		models.FactorMarketValue:   0.03,
	}
}

// DefaultStrategyConfig returns the parameter set used when no file overrides it
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Version: "default",
		Weights: DefaultWeights(),
		Estimator: EstimatorConfig{
			ClampLow:                 0.20,
			ClampHigh:                0.80,
			BoostConstant:            0.10,
			MinObservations:          5,
			PriorVariance:            0.04,
			CompositeConfidenceScale: 0.5,
			BinarizeThreshold:        0.5,
		},
		Discovery: DiscoveryConfig{
			DistanceThreshold:   0.5,
			MinClusterSize:      10,
			HighWinRate:         0.65,
			LowWinRate:          0.35,
			DominanceThreshold:  0.6,
			BinarizeThreshold:   0.5,
			MinPairSupport:      15,
			PairWinRate:         0.7,
			CalibrationConstant: 25,
			MaxConfidence:       0.9,
			CancelCheckEvery:    256,
			CacheTTLMinutes:     24 * 60,
		},
		Risk: RiskConfig{
			K1:              2.0,
			K2:              0.5,
			VaRCap:          0.5,
			BaseFractionCap: 0.25,
			MinFraction:     0.0,
			MaxFraction:     0.10,
			NCalibration:    30,
			RecentWindow:    10,
			VigHeadroom:     0.0,
		},
		Portfolio: PortfolioConfig{
			Bankroll: 10000,
			Buckets: []BucketConfig{
				{Name: "safe", Cap: 1000, MaxCount: 5},
				{Name: "mid", Cap: 600, MaxCount: 4},
				{Name: "bold", Cap: 300, MaxCount: 2},
			},
			MaxCorrelationExposure: 0.65,
			StakePrecision:         2,
		},
		Simulation: SimulationConfig{
			Trials:               1000,
			MinTrials:            100,
			Seed:                 42,
			BlackSwanProbability: 0.05,
			BlackSwanDiscount:    0.8,
			BatchSize:            250,
		},
		WalkForward: WalkForwardConfig{
			TrainSize:    200,
			TestSize:     50,
			StepSize:     50,
			MinStability: 0.6,
		},
		Gate: GateConfig{
			MinProfitProbability: 0.55,
			MinSharpe:            0.0,
			MaxVaR95:             0.25,
		},
	}
}
