package config

import "github.com/spf13/viper"

const (
	uploaderURLVar     = "CDP_UPLOADER_URL"
	uploaderBucketVar  = "CDP_UPLOADER_S3_BUCKET"
	uploaderUseMockVar = "CDP_UPLOADER_USE_MOCK"
	backendURLVar      = "BACKEND_API_URL"
)

type UploadConfig interface {
	GetUploaderURL() string
	GetUploaderBucket() string
	GetUseMockUploader() bool
	GetBackendURL() string
}

type Upload struct {
	v *viper.Viper
}

var _ UploadConfig = Upload{}

func (u Upload) GetUploaderURL() string {
	return u.v.GetString(uploaderURLVar)
}

func (u Upload) GetUploaderBucket() string {
	return u.v.GetString(uploaderBucketVar)
}

func (u Upload) GetUseMockUploader() bool {
	return u.v.GetBool(uploaderUseMockVar)
}

func (u Upload) GetBackendURL() string {
	return u.v.GetString(backendURLVar)
}
