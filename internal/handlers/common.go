package handlers

const (
	defaultPageSize = 20
	maxPageSize     = 100
)
