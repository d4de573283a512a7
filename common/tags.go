package common

// Scene tags
const (
	TagSourceID         = "sourceID"
	TagUUID             = "uuid"
	TagIngestionDate    = "ingestionDate"
	TagSatellite        = "satellite"
	TagPolarisationMode = "polarisationMode"
	TagOrbitDirection   = "orbitDirection"
	TagRelativeOrbit    = "relativeOrbit"
	TagOrbit            = "orbit"
	TagProductType      = "productType"
	TagDownloadURL      = "downloadURL"
)
