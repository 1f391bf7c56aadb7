package db

import (
	"fmt"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/arb"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpportunityRecord is the database model for one accepted arb.Opportunity.
type OpportunityRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	ObservedAt       time.Time `gorm:"index;not null"`
	BuyPool          string    `gorm:"type:varchar(66);not null;index"`
	SellPool         string    `gorm:"type:varchar(66);not null;index"`
	PairBase         string    `gorm:"type:varchar(66);not null"`
	PairQuote        string    `gorm:"type:varchar(66);not null"`
	TradeSizeInQuote float64   `gorm:"not null"`
	NetProfit        int64     `gorm:"not null"`
	NetProfitPct     float64   `gorm:"not null"`
	ProbCombined     float64   `gorm:"not null"`
	EVScore          float64   `gorm:"not null"`
	ConfidenceBucket string    `gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (OpportunityRecord) TableName() string {
	return "opportunities"
}

// Recorder persists accepted opportunities for later study, grounded on
// the teacher's MySQLRecorder (same GORM-over-MySQL wiring, new schema).
type Recorder interface {
	Record(o arb.Opportunity) error
	Close() error
}

// MySQLRecorder implements Recorder using GORM and MySQL.
type MySQLRecorder struct {
	db *gorm.DB
}

// NewMySQLRecorder opens dsn, migrates the opportunities table, and
// returns a ready MySQLRecorder.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	return NewMySQLRecorderWithDB(db)
}

// NewMySQLRecorderWithDB wraps an already-open GORM handle.
func NewMySQLRecorderWithDB(db *gorm.DB) (*MySQLRecorder, error) {
	if err := db.AutoMigrate(&OpportunityRecord{}); err != nil {
		return nil, fmt.Errorf("migrate opportunities schema: %w", err)
	}
	return &MySQLRecorder{db: db}, nil
}

// Record persists one accepted opportunity.
func (r *MySQLRecorder) Record(o arb.Opportunity) error {
	record := OpportunityRecord{
		ObservedAt:       time.Unix(o.ObservedUnix, 0),
		BuyPool:          o.BuyPool.String(),
		SellPool:         o.SellPool.String(),
		PairBase:         o.Pair.Base.String(),
		PairQuote:        o.Pair.Quote.String(),
		TradeSizeInQuote: o.TradeSizeInQuote,
		NetProfit:        o.NetProfit,
		NetProfitPct:     o.NetProfitPct,
		ProbCombined:     o.ProbCombined,
		EVScore:          o.EVScore,
		ConfidenceBucket: o.ConfidenceBucket.String(),
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("record opportunity: %w", result.Error)
	}
	return nil
}

// GetDB returns the underlying GORM DB instance for advanced queries.
func (r *MySQLRecorder) GetDB() *gorm.DB {
	return r.db
}

// Close closes the database connection.
func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// RecentByPool retrieves recorded opportunities for a given buy pool, newest first.
func (r *MySQLRecorder) RecentByPool(buyPool string, limit int) ([]OpportunityRecord, error) {
	var records []OpportunityRecord
	result := r.db.Where("buy_pool = ?", buyPool).
		Order("observed_at DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("query opportunities by pool: %w", result.Error)
	}
	return records, nil
}

// CountOpportunities returns the total number of recorded opportunities.
func (r *MySQLRecorder) CountOpportunities() (int64, error) {
	var count int64
	result := r.db.Model(&OpportunityRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count opportunities: %w", result.Error)
	}
	return count, nil
}
