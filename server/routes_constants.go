package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/health"

	// Auth Routes
	RouteLogin          = "/login"
	RouteSignIn         = "/auth/sign-in"
	RouteSignInCallback = "/login/return"
	RouteSignOut        = "/auth/sign-out"
	RouteSignOutOIDC    = "/auth/sign-out-oidc"
	RouteProfile        = "/profile"

	// RLB upload Routes
	RouteRLBUpload         = "/rlb-upload"
	RouteRLBUploadInitiate = "/rlb-upload/initiate"
	RouteRLBUploadStatus   = "/rlb-upload/status"
	RouteRLBUploadPoll     = "/rlb-upload/status/poll"
	RouteRLBUploadCallback = "/rlb-upload/callback"

	// Uploader Routes, proxied or served by the mock uploader
	RouteUploadAndScan      = "/upload-and-scan/{uploadId}"
	RouteMockUploaderStatus = "/mock-uploader/status/{uploadId}"
)
