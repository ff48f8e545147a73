package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/sirupsen/logrus"
)

var csvHeader = []string{
	"text",
	"author_name",
	"author_handle",
	"date",
	"time",
	"lang",
	"tweet_url",
	"mentioned_urls",
	"is_reposted",
	"media_type",
	"image_urls",
	"thread_number",
}

// WriteCSVByPeriod writes one CSV file per period group, named
// <base>_<period>.csv. The period index is the file key and therefore not a
// column. Returns the paths written.
func WriteCSVByPeriod(records []feed.PostRecord, outputDir, baseFilename string) ([]string, error) {

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	byPeriod := make(map[int][]feed.PostRecord)
	var periods []int
	for _, r := range records {
		if _, ok := byPeriod[r.PeriodGroup]; !ok {
			periods = append(periods, r.PeriodGroup)
		}
		byPeriod[r.PeriodGroup] = append(byPeriod[r.PeriodGroup], r)
	}

	var written []string
	for _, period := range periods {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%d.csv", baseFilename, period))
		logrus.Infof("Saving week %d data to %s...", period, filename)

		if err := writePeriodFile(filename, byPeriod[period]); err != nil {
			return written, err
		}
		written = append(written, filename)
	}

	return written, nil
}

func writePeriodFile(filename string, records []feed.PostRecord) error {

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range records {
		record := []string{
			r.Text,
			r.AuthorName,
			r.AuthorHandle,
			r.Timestamp.Format("2006-01-02"),
			r.Timestamp.Format("15:04:05"),
			r.Lang,
			r.Permalink,
			strings.Join(r.MentionedURLs, " "),
			strconv.FormatBool(r.IsRepost),
			string(r.Media),
			strings.Join(r.ImageURLs, " "),
			strconv.Itoa(r.ThreadID),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
