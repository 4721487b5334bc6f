package service

import (
	"github.com/dukerupert/sif/internal/domain"
)

// Session errors - use domain.ENOTFOUND / domain.ECONFLICT
var (
	ErrSessionNotFound = domain.Errorf(domain.ENOTFOUND, "", "Session not found")
	ErrItemNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Item not found in this session")
	ErrCommitRunning   = domain.Errorf(domain.ECONFLICT, "", "A commit run is already in progress for this session")
)

// Workflow errors - use domain.EINVALID
var (
	ErrNoRows            = domain.Errorf(domain.EINVALID, "", "Uploaded file contains no data rows")
	ErrMappingIncomplete = domain.Errorf(domain.EINVALID, "", "Identifier and cost columns must be mapped before lookup")
	ErrStockUnresolved   = domain.Errorf(domain.EINVALID, "", "Stock column must be mapped or explicitly set to none")
	ErrNoRecords         = domain.Errorf(domain.EINVALID, "", "No supplier records could be extracted from the file")
	ErrNothingIncluded   = domain.Errorf(domain.EINVALID, "", "No items are selected for update")
	ErrNotReconciled     = domain.Errorf(domain.EINVALID, "", "Run a lookup before committing")
)
