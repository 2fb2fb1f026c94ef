package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/domain/shared/failure"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	// ErrKeyRecorded is returned by IdempotencyStore.Save when the key already
	// holds a result.
	ErrKeyRecorded = fmt.Errorf("middleware: idempotency key already recorded: %w", failure.ErrDuplicate)
)

// Idempotency replays the stored outcome of an IdempotentCommand whose key was
// seen before. Storage, unsupported and unknown failures are not recorded so a
// retry runs the command again. When two calls race on one key the first
// saved outcome wins and the loser replays it.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return nextFn(ctx, cmd)
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(idCmd, codec, rec)
			}

			result, err := nextFn(ctx, cmd)
			record := IdempotencyRecord{
				Key:        key,
				OccurredAt: time.Now().UTC(),
			}
			if err != nil {
				kind := failure.KindOf(err)
				if kind == failure.KindStorageUnavailable || kind == failure.KindUnsupported || kind == failure.KindUnknown {
					return nil, err
				}
				record.Error = err.Error()
				record.ErrorKind = string(kind)
			} else if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}

			saveErr := store.Save(ctx, record)
			if errors.Is(saveErr, ErrKeyRecorded) {
				winner, found, getErr := store.Get(ctx, key)
				if getErr != nil {
					return nil, getErr
				}
				if found {
					return replay(idCmd, codec, winner)
				}
			}
			if saveErr != nil {
				if err != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, saveErr
			}
			return result, err
		})
	}
}

func replay(cmd IdempotentCommand, codec ResultCodec, rec IdempotencyRecord) (any, error) {
	if rec.Error != "" {
		return nil, failure.Restore(failure.Kind(rec.ErrorKind), rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
