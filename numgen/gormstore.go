package numgen

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/numkit/connector"
	"github.com/ceyewan/numkit/xerrors"
)

// sequenceCounter 关系库中的计数器行
type sequenceCounter struct {
	Key   string `gorm:"column:counter_key;primaryKey;size:191"`
	Value int64  `gorm:"column:counter_value;not null"`
}

// TableName 指定表名
func (sequenceCounter) TableName() string {
	return "numkit_sequence_counters"
}

// dbCounterStore 基于 GORM 的计数器存储（非导出）。
//
// 读改写由单条 insert-or-update 语句在数据库内原子完成，不依赖
// 先读后写：普通快照读取到的旧值参与计算会在并发下丢失更新。
// 语句获得的行锁持有到事务提交，事务内的回读只观察到本事务的结果。
type dbCounterStore struct {
	db *gorm.DB
}

// NewDBCounterStore 创建关系库计数器存储并完成建表迁移
func NewDBCounterStore(dbConn connector.DBConnector) (CounterStore, error) {
	if dbConn == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "db_connector_nil")
	}
	db := dbConn.GetDB()
	if err := db.AutoMigrate(&sequenceCounter{}); err != nil {
		return nil, xerrors.Wrap(err, "migrate sequence counter table failed")
	}
	return &dbCounterStore{db: db}, nil
}

// IncrBy 原子自增：就地累加的 upsert，首次访问即插入 delta
func (s *dbCounterStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	var result int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "counter_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"counter_value": gorm.Expr("counter_value + ?", delta),
			}),
		}).Create(&sequenceCounter{Key: key, Value: delta}).Error
		if err != nil {
			return err
		}

		var row sequenceCounter
		if err := tx.Where("counter_key = ?", key).First(&row).Error; err != nil {
			return err
		}
		result = row.Value
		return nil
	})
	if err != nil {
		// MySQL 严格模式与 SQLite 都在 64 位整型溢出时报错而不是回绕
		if isDBOverflow(err) {
			return 0, xerrors.Wrap(ErrSequenceOverflow, "db incrby")
		}
		return 0, xerrors.Wrap(err, "db incrby failed")
	}
	return result, nil
}

// AdvanceAtLeast 条件推进，绝不回退
func (s *dbCounterStore) AdvanceAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	var result int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 低于 floor 时推进；已达标的行不受影响
		if err := tx.Model(&sequenceCounter{}).
			Where("counter_key = ? AND counter_value < ?", key, floor).
			Update("counter_value", floor).Error; err != nil {
			return err
		}

		// 首次播种：行不存在时以 floor 插入，并发插入冲突则忽略
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&sequenceCounter{Key: key, Value: floor}).Error; err != nil {
			return err
		}

		var row sequenceCounter
		if err := tx.Where("counter_key = ?", key).First(&row).Error; err != nil {
			return err
		}
		result = row.Value
		return nil
	})
	if err != nil {
		return 0, xerrors.Wrap(err, "db advance failed")
	}
	return result, nil
}

// Probe 以底层连接 Ping 探测可达性
func (s *dbCounterStore) Probe(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return xerrors.Wrap(err, "get sql db failed")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return xerrors.Wrap(err, "db ping failed")
	}
	return nil
}

// isDBOverflow 识别整型溢出错误：
// MySQL 报 "Out of range value"，SQLite 报 "integer overflow"
func isDBOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "out of range") || strings.Contains(msg, "integer overflow")
}
