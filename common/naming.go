package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentinel-1 product identifier layout:
// MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC

// IsSentinel1ProductID reports whether sceneName looks like a Sentinel-1
// product identifier.
func IsSentinel1ProductID(sceneName string) bool {
	return strings.HasPrefix(sceneName, "S1")
}

// Info parses a Sentinel-1 product identifier into its named fields.
func Info(sceneName string) (map[string]string, error) {
	if !IsSentinel1ProductID(sceneName) {
		return nil, fmt.Errorf("Info: not a Sentinel-1 product: %s", sceneName)
	}
	if len(sceneName) < len("MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC") {
		return nil, fmt.Errorf("invalid Sentinel1 file name: %s", sceneName)
	}
	return map[string]string{
		"SCENE":            sceneName,
		"MISSION_ID":       sceneName[0:3],
		"MISSION_VERSION":  sceneName[2:3],
		"MODE":             sceneName[4:6],
		"PRODUCT_TYPE":     sceneName[7:10],
		"RESOLUTION":       sceneName[10:11],
		"PROCESSING_LEVEL": sceneName[12:13],
		"PRODUCT_CLASS":    sceneName[13:14],
		"POLARISATION":     sceneName[14:16],
		"DATE":             sceneName[17:25],
		"YEAR":             sceneName[17:21],
		"MONTH":            sceneName[21:23],
		"DAY":              sceneName[23:25],
		"TIME":             sceneName[26:32],
		"HOUR":             sceneName[26:28],
		"MINUTE":           sceneName[28:30],
		"SECOND":           sceneName[30:32],
		"ORBIT":            sceneName[49:55],
		"MISSION":          sceneName[56:62],
		"UNIQUE_ID":        sceneName[63:67],
	}, nil
}

// GetDateFromProductId returns the acquisition start date of a scene.
func GetDateFromProductId(sceneName string) (time.Time, error) {
	format, err := Info(sceneName)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", fmt.Sprintf("%s%s%s", format["YEAR"], format["MONTH"], format["DAY"]))
}

var datePairRe = regexp.MustCompile(`(\d{8})T\d{6}_(\d{8})T\d{6}`)

// ParseDatePair extracts the reference and secondary acquisition dates from
// a product file name containing a YYYYMMDDThhmmss_YYYYMMDDThhmmss pair.
// ok is false when no pair is present or a date does not parse.
func ParseDatePair(name string) (ref, sec time.Time, ok bool) {
	m := datePairRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	var err error
	if ref, err = time.Parse("20060102", m[1]); err != nil {
		return time.Time{}, time.Time{}, false
	}
	if sec, err = time.Parse("20060102", m[2]); err != nil {
		return time.Time{}, time.Time{}, false
	}
	return ref, sec, true
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of SCENE, MISSION_ID, DATE(YEAR/MONTH/DAY), TIME(HOUR/MINUTE/SECOND), ORBIT, UNIQUE_ID...
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
