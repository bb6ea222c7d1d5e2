package cmosrtcdev

import (
	"context"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/services/hal/internal/core"
	"cmosrtc-go/types"
)

func init() { core.RegisterBuilder("cmos_rtc", builder{}) }

type Params struct {
	Name   string `mapstructure:"name"`   // capability name; defaults to the device id
	Domain string `mapstructure:"domain"` // defaults to "time"
}

type builder struct{}

func (builder) Build(ctx context.Context, in core.BuilderInput) (core.Device, error) {
	p, err := core.DecodeParams[Params](in.Params)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = in.ID
	}
	if p.Domain == "" {
		p.Domain = "time"
	}
	ports, err := in.Res.Reg.ClaimPorts(in.ID, cmosrtc.AddressPort, portCount)
	if err != nil {
		return nil, err
	}

	lg := in.Res.Log
	if lg != nil {
		lg = lg.With("dev", in.ID)
	}
	return &Device{
		id:   in.ID,
		drv:  cmosrtc.New(ports, cmosrtc.Config{}),
		pub:  in.Res.Pub,
		reg:  in.Res.Reg,
		log:  lg,
		addr: core.CapAddr{Domain: p.Domain, Kind: string(types.KindRTC), Name: p.Name},
	}, nil
}
