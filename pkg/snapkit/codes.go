package snapkit

// Command names, including the names used by older plugin revisions.
const (
	MethodIsInstalled        = "isInstalled"
	MethodIsLoggedIn         = "isLoggedIn"
	MethodLogin              = "login"
	MethodLogout             = "logout"
	MethodGetCurrentUser     = "getCurrentUser"
	MethodGetAccessToken     = "getAccessToken"
	MethodSendMedia          = "sendMedia"
	MethodVerifyPhoneNumber  = "verifyPhoneNumber"
	MethodGetPlatformVersion = "getPlatformVersion"
	MethodSDKVersion         = "sdkVersion"
	MethodShareToCamera      = "shareToCamera"
	MethodShareWithPhoto     = "shareWithPhoto"
	MethodShareWithVideo     = "shareWithVideo"

	AliasIsSnapchatInstalled = "isSnapchatInstalled"
	AliasCallLogin           = "callLogin"
	AliasCallLogout          = "callLogout"
	AliasGetUser             = "getUser"
	AliasVerifyNumber        = "verifyNumber"
)

// Failure codes chosen by the catalog handlers.
const (
	CodeIsInstalled     = "IsInstalledError"
	CodeIsLoggedIn      = "IsLoggedInError"
	CodeLogin           = "LoginError"
	CodeLogout          = "LogoutError"
	CodeGetUser         = "GetUserError"
	CodeGetAccessToken  = "GetAccessTokenError"
	CodeSendMedia       = "SendMediaError"
	CodeVerifyNumber    = "VerifyNumberError"
	CodePlatformVersion = "PlatformVersionError"
	CodeShareToCamera   = "ShareToCameraError"
	CodeShareWithPhoto  = "ShareWithPhotoError"
	CodeShareWithVideo  = "ShareWithVideoError"
)

// Confirmation payloads.
const (
	LoginSuccess     = "Login Success"
	LogoutSuccess    = "Logout Success"
	SendMediaSuccess = "SendMedia Success"

	ShareToCameraSuccess  = "ShareToCamera Success"
	ShareWithPhotoSuccess = "ShareWithPhoto Success"
	ShareWithVideoSuccess = "ShareWithVideo Success"
)
