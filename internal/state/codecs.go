package state

import (
	"go.trai.ch/keel/internal/codec"
	"go.trai.ch/keel/internal/core/domain"
)

// NewCodecTable builds the codec table of the build-state wire format.
// Registration order defines the discriminators; writer and reader both call
// this and must never diverge.
func NewCodecTable() *codec.Table {
	t := codec.NewTable()
	t.RegisterBasicTypes()

	t.Register((*domain.LocalCacheConfig)(nil), codec.FuncCodec{
		EncodeFn: func(e *codec.Encoder, v any) error {
			cfg := v.(*domain.LocalCacheConfig)
			if err := e.WriteFile(cfg.Directory); err != nil {
				return err
			}
			return e.WriteBool(cfg.Push)
		},
		DecodeFn: func(d *codec.Decoder) (any, error) {
			dir, err := d.ReadFile()
			if err != nil {
				return nil, err
			}
			push, err := d.ReadBool()
			if err != nil {
				return nil, err
			}
			return &domain.LocalCacheConfig{Directory: dir, Push: push}, nil
		},
	})

	t.Register((*domain.RemoteCacheConfig)(nil), codec.FuncCodec{
		EncodeFn: func(e *codec.Encoder, v any) error {
			cfg := v.(*domain.RemoteCacheConfig)
			if err := e.WriteString(cfg.URL); err != nil {
				return err
			}
			return e.WriteBool(cfg.Push)
		},
		DecodeFn: func(d *codec.Decoder) (any, error) {
			url, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			push, err := d.ReadBool()
			if err != nil {
				return nil, err
			}
			return &domain.RemoteCacheConfig{URL: url, Push: push}, nil
		},
	})

	return t
}
