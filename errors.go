package finitemutsel

import (
	"errors"
	"fmt"
)

var (
	ErrNoComponents   = errors.New("mixture has no components")
	ErrSlotRange      = errors.New("component slot out of range")
	ErrNotCollapsed   = errors.New("operation needs the collapsed representation")
	ErrCollapsed      = errors.New("operation needs the unfolded representation")
	ErrMasterOnly     = errors.New("operation is reserved to the master rank")
	ErrWorkerOnly     = errors.New("operation is reserved to worker ranks")
	ErrUnknownCatalog = errors.New("unrecognized empirical mixture")
	ErrBadStateCount  = errors.New("bad number of states")
	ErrUnknownSymbol  = errors.New("unrecognized state symbol")
	ErrBadPartition   = errors.New("invalid site partition")
	ErrCheckpoint     = errors.New("malformed checkpoint")
)

//ConfigError marks unrecoverable misuse: bad catalogs, bad mixture files, empty mixtures at sample time.
//The command-line boundary terminates the run when it sees one.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

//IsConfigError reports whether err carries a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
