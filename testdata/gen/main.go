// Command gen writes the sample users files under testdata/ in every
// format the loader reads. Run it from the repository root:
//
//	go run ./testdata/gen
package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

type User struct {
	Name   string    `parquet:"name" json:"name"`
	Age    int64     `parquet:"age" json:"age"`
	City   string    `parquet:"city" json:"city"`
	Score  *float64  `parquet:"score,optional" json:"score"`
	Joined time.Time `parquet:"joined,timestamp" json:"joined"`
}

const userSchema = `{
  "type": "record", "name": "User",
  "fields": [
    {"name": "name", "type": "string"},
    {"name": "age", "type": "long"},
    {"name": "city", "type": "string"},
    {"name": "score", "type": ["null", "double"], "default": null},
    {"name": "joined", "type": {"type": "long", "logicalType": "timestamp-micros"}}
  ]
}`

func score(f float64) *float64 { return &f }

func users() []User {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	return []User{
		{"Alice", 30, "NY", score(7.5), day(3)},
		{"Bob", 25, "LA", nil, day(9)},
		{"Charlie", 35, "NY", score(9), day(14)},
		{"Diana", 28, "SF", score(6.25), day(20)},
		{"Eve", 22, "LA", score(8), day(21)},
		{"Frank", 40, "NY", nil, day(30)},
	}
}

func main() {
	log := logrus.New()
	for name, write := range map[string]func(string, []User) error{
		"testdata/users.parquet": writeParquet,
		"testdata/users.avro":    writeAvro,
		"testdata/users.csv":     writeCSV,
		"testdata/users.jsonl":   writeJSONL,
	} {
		if err := write(name, users()); err != nil {
			log.WithError(err).WithField("file", name).Fatal("write failed")
		}
		log.WithField("file", name).Info("wrote")
	}
}

func writeParquet(path string, us []User) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := parquet.NewGenericWriter[User](f)
	if _, err := w.Write(us); err != nil {
		return err
	}
	return w.Close()
}

func writeAvro(path string, us []User) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Schema: userSchema})
	if err != nil {
		return err
	}
	recs := make([]any, len(us))
	for i, u := range us {
		var s any
		if u.Score != nil {
			s = goavro.Union("double", *u.Score)
		}
		recs[i] = map[string]any{"name": u.Name, "age": u.Age, "city": u.City, "score": s, "joined": u.Joined}
	}
	return w.Append(recs)
}

func writeCSV(path string, us []User) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"name", "age", "city", "score", "joined"})
	for _, u := range us {
		s := ""
		if u.Score != nil {
			s = strconv.FormatFloat(*u.Score, 'g', -1, 64)
		}
		_ = w.Write([]string{u.Name, strconv.FormatInt(u.Age, 10), u.City, s, u.Joined.Format(time.RFC3339)})
	}
	w.Flush()
	return w.Error()
}

func writeJSONL(path string, us []User) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, u := range us {
		if err := enc.Encode(u); err != nil {
			return err
		}
	}
	return nil
}
