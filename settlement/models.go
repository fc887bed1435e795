package settlement

import "time"

// 交易状态
const (
	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
	TxnStatusFailed    = "failed"
)

// 结算单状态：pending 先行落库，事务内推进到 processing，最终 completed / failed
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Transaction 交易台账行
// 结算聚合的数据源，由订单 / 支付流程写入
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TxnID     string    `gorm:"size:64;uniqueIndex" json:"txn_id"`
	OrderID   string    `gorm:"size:64;index" json:"order_id"`
	VendorID  string    `gorm:"size:64;index" json:"vendor_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Status    string    `gorm:"size:16;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}

// SettlementRecord 日结算单
// 每个自然日至多一条记录，SettlementDate 上有唯一索引
type SettlementRecord struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// SettlementDate 结算日期，格式 "2006-01-02"
	SettlementDate string `gorm:"size:10;uniqueIndex" json:"settlement_date"`

	// TotalTransactions 当日交易总笔数（含失败）
	TotalTransactions int64 `json:"total_transactions"`

	// TotalVolume 当日交易总金额（含失败）
	TotalVolume float64 `json:"total_volume"`

	// SuccessfulCount / FailedCount 按交易状态的笔数
	SuccessfulCount int64 `json:"successful_count"`
	FailedCount     int64 `json:"failed_count"`

	// SettlementAmount 可结算金额（仅成功交易）
	SettlementAmount float64 `json:"settlement_amount"`

	// Fees 平台手续费，按费率从可结算金额中扣除
	Fees float64 `json:"fees"`

	// NetAmount 应付净额 = SettlementAmount - Fees
	NetAmount float64 `json:"net_amount"`

	Status string `gorm:"size:16;index" json:"status"`

	// ErrorMessage 失败原因，仅 StatusFailed 时有值
	ErrorMessage string `gorm:"size:512" json:"error_message,omitempty"`

	// ProcessedAt 结算落定时间（完成或失败）
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SettlementRecord) TableName() string {
	return "settlement_records"
}

// DateLayout 结算日期格式
const DateLayout = "2006-01-02"

// Stats 一段时间内的结算统计
type Stats struct {
	// Days 统计窗口天数
	Days int `json:"days"`

	// CompletedRuns / FailedRuns 窗口内按状态的结算单数
	CompletedRuns int64 `json:"completed_runs"`
	FailedRuns    int64 `json:"failed_runs"`

	// TotalVolume 窗口内交易总金额
	TotalVolume float64 `json:"total_volume"`

	// TotalTransactions 窗口内交易总笔数
	TotalTransactions int64 `json:"total_transactions"`

	// AvgTransactionsPerDay 平均每个结算日的交易笔数
	AvgTransactionsPerDay float64 `json:"avg_transactions_per_day"`
}

// dayAggregate 单日交易聚合结果（内部使用）
type dayAggregate struct {
	TotalTransactions int64
	TotalVolume       float64
	SuccessfulCount   int64
	FailedCount       int64
	SettlementAmount  float64
}
