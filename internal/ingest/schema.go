package ingest

import "github.com/AngelCh415/roi-insights/internal/models"

// Column names of the CSV contract. The extracts come out of the ad platform
// with localized headers and those are matched verbatim.
const (
	ColDate     = "日期"
	ColApp      = "app"
	ColBidType  = "出价类型"
	ColCountry  = "国家地区"
	ColInstalls = "应用安装.总次数"
)

var RoiColumns = [models.NumHorizons]string{
	models.Daily: "当日ROI",
	models.Day1:  "1日ROI",
	models.Day3:  "3日ROI",
	models.Day7:  "7日ROI",
	models.Day14: "14日ROI",
	models.Day30: "30日ROI",
	models.Day60: "60日ROI",
	models.Day90: "90日ROI",
}

// Header returns the canonical header row.
func Header() []string {
	h := []string{ColDate, ColApp, ColBidType, ColCountry, ColInstalls}
	return append(h, RoiColumns[:]...)
}

// RawRecord is one CSV data row keyed by header name. A column missing from
// the file has no key; an empty cell maps to "".
type RawRecord map[string]string
