package valuebridge

import (
	"github.com/cryguy/valuebridge/internal/convert"
	"github.com/cryguy/valuebridge/internal/core"
)

// Type aliases re-exporting internal types so callers can use
// valuebridge.Bridge, valuebridge.Config, etc. without importing the
// internal packages directly.

type Bridge[V any] = convert.Bridge[V]
type Listener[V any] = convert.Listener[V]
type Adapter[V any] = core.Adapter[V]
type Runtime[V any] = core.Runtime[V]
type RootHandle = core.RootHandle
type Config = core.Config
type PartialError = core.PartialError

// Errors re-exported from core.
var (
	ErrTypeMismatch      = core.ErrTypeMismatch
	ErrDecode            = core.ErrDecode
	ErrPrecondition      = core.ErrPrecondition
	ErrPathConflict      = core.ErrPathConflict
	ErrPartialConversion = core.ErrPartialConversion
)

// Functions re-exported from core.
var DefaultConfig = core.DefaultConfig
var SetLogger = core.SetLogger
var NewLogger = core.NewLogger
