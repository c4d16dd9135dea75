package vnic

import (
	"context"
	"errors"
	"net/http"

	"vnic-go/pkg/log"

	"github.com/labstack/echo/v4"
)

type DeviceApi struct {
	Api    *echo.Echo
	Device *Device
}

type identityResponse struct {
	MAC string `json:"mac"`
	IP  string `json:"ip"`
}

func (dapi *DeviceApi) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, dapi.Device.GetStats())
}

func (dapi *DeviceApi) GetIdentity(c echo.Context) error {
	id := dapi.Device.Identity()
	return c.JSON(http.StatusOK, identityResponse{MAC: id.MAC.String(), IP: id.IP.String()})
}

func (dapi *DeviceApi) GetHealth(c echo.Context) error {
	if dapi.Device.LocalAddr() == "" {
		return c.String(http.StatusServiceUnavailable, "not listening")
	}
	return c.String(http.StatusOK, "ok")
}

func NewDeviceApi(d *Device) *DeviceApi {
	api := echo.New()
	api.HideBanner = true
	api.HidePort = true
	dapi := &DeviceApi{
		Api:    api,
		Device: d,
	}
	dapi.Api.GET("/stats", dapi.GetStats)
	dapi.Api.GET("/identity", dapi.GetIdentity)
	dapi.Api.GET("/healthz", dapi.GetHealth)
	return dapi
}

// Run serves until Shutdown.
func (dapi *DeviceApi) Run(addr string) {
	log.Info().Str("addr", addr).Msg("vnic: http api listening")
	if err := dapi.Api.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("addr", addr).Msg("vnic: http api stopped")
	}
}

func (dapi *DeviceApi) Shutdown(ctx context.Context) error {
	return dapi.Api.Shutdown(ctx)
}
