package checks

import (
	"context"

	"github.com/madrow1/mist-security-extension/pkg/mist"
)

// fakeAPI implements RemoteState from canned data
type fakeAPI struct {
	admins    []mist.Admin
	adminsErr error

	orgSetting    *mist.OrgSetting
	orgSettingErr error

	siteSettings    map[string]*mist.SiteSetting
	siteSettingErrs map[string]error

	wlans    []mist.WLAN
	wlansErr error

	devices    map[string][]mist.Device
	deviceErrs map[string]error
}

func (f *fakeAPI) ListAdmins(ctx context.Context, orgID string) ([]mist.Admin, error) {
	return f.admins, f.adminsErr
}

func (f *fakeAPI) GetOrgSetting(ctx context.Context, orgID string) (*mist.OrgSetting, error) {
	if f.orgSettingErr != nil {
		return nil, f.orgSettingErr
	}
	if f.orgSetting == nil {
		return &mist.OrgSetting{}, nil
	}
	return f.orgSetting, nil
}

func (f *fakeAPI) GetSiteSetting(ctx context.Context, siteID string) (*mist.SiteSetting, error) {
	if err := f.siteSettingErrs[siteID]; err != nil {
		return nil, err
	}
	if setting, ok := f.siteSettings[siteID]; ok {
		return setting, nil
	}
	return &mist.SiteSetting{}, nil
}

func (f *fakeAPI) ListWLANs(ctx context.Context, orgID string) ([]mist.WLAN, error) {
	return f.wlans, f.wlansErr
}

func (f *fakeAPI) ListSiteDevices(ctx context.Context, siteID string) ([]mist.Device, error) {
	if err := f.deviceErrs[siteID]; err != nil {
		return nil, err
	}
	return f.devices[siteID], nil
}

func boolPtr(b bool) *bool { return &b }
