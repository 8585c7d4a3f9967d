package log

import "io"

// Global vars related to the logger package
var (
	subLoggers = map[string]*SubLogger{}

	Global       *SubLogger
	BackTester   *SubLogger
	ConfigMgr    *SubLogger
	DataLoader   *SubLogger
	SignalMgr    *SubLogger
	OrderMgr     *SubLogger
	PortfolioMgr *SubLogger
	RiskMgr      *SubLogger
	Statistics   *SubLogger
)

// SubLogger is a named channel of log output with its own levels and writers
type SubLogger struct {
	name   string
	levels Levels
	output io.Writer
}
