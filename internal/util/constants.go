package util

const DateFormat = "2006-01-02"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
