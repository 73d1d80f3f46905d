package model

// status keys understood by the REST family firmware
const (
	KeyDeviceUptime        = "device_uptime"
	KeyBatteryLevelPercent = "device_battery_level_percent"
	KeyBatteryTemperature  = "device_battery_temperature"
	KeyNetworkMode         = "mnet_sysmode"
	KeySignalLevel         = "mnet_sig_level"
	KeyRoamStatus          = "mnet_roam_status"
	KeyOperatorName        = "mnet_operator_name"
	KeyInternetMode        = "rt_internet_mode"
	KeyEthConnInfo         = "rt_eth_conn_info"
	KeyDialStatus          = "dialup_dial_status"
	KeyWifiWorkStatus      = "wifi_work_status"
	KeySMSUnreadCount      = "sms_unread_count"
	KeyFOTAStatus          = "fota_curr_istatus"

	// reported by the RPC family
	KeyOnlineDeviceCount = "online_device_count"
)

// StatusKeys is the fixed allowlist requested from get_mgdb_params.
var StatusKeys = []string{
	KeyDeviceUptime,
	KeyBatteryLevelPercent,
	KeyBatteryTemperature,
	KeyNetworkMode,
	KeySignalLevel,
	KeyRoamStatus,
	KeyOperatorName,
	KeyInternetMode,
	KeyEthConnInfo,
	KeyDialStatus,
	KeyWifiWorkStatus,
	KeySMSUnreadCount,
	KeyFOTAStatus,
}

type StatusRequest struct {
	Keys []string `json:"keys"`
}

type StatusResponse struct {
	Data map[string]interface{} `json:"data"`
}
