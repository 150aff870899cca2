// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default endpoints and identifiers of the birds.org.il deck
const (
	DefaultSpeciesURL       = "https://api.birds.org.il/api/species/byid/he/{id}"
	DefaultImageBaseURL     = "https://www.birds.org.il"
	DefaultSoundURLTemplate = "https://xeno-canto.org/{id}/download"
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"
	DefaultDeckID           = 2059400110
	DefaultModelID          = 1607392319
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("lockfile", "birddeck.lock")

	v.SetDefault("api.speciesurl", DefaultSpeciesURL)
	v.SetDefault("api.imagebaseurl", DefaultImageBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.ratelimit", 0.0)
	v.SetDefault("api.useragent", DefaultUserAgent)
	v.SetDefault("api.headers", map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7,ar;q=0.6",
		"Referer":         "https://www.birds.org.il/",
		"Origin":          "https://www.birds.org.il",
	})

	v.SetDefault("discovery.start", 1)
	v.SetDefault("discovery.end", 1000)
	v.SetDefault("discovery.workers", 10)
	v.SetDefault("discovery.timeout", 10*time.Second)
	v.SetDefault("discovery.idlist", "valid_species_ids.txt")

	v.SetDefault("fetch.workers", 10)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.slowthreshold", 500*time.Millisecond)
	v.SetDefault("database.sqlite.path", "birds.sqlite3")
	v.SetDefault("database.sqlite.busytimeout", 5000)
	v.SetDefault("database.sqlite.journalmode", "WAL")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "birddeck")

	v.SetDefault("media.root", "media")
	v.SetDefault("media.workers", 10)
	v.SetDefault("media.timeout", 60*time.Second)
	v.SetDefault("media.cleanorphans", false)
	v.SetDefault("media.image.maxwidth", 400)
	v.SetDefault("media.image.maxheight", 400)
	v.SetDefault("media.image.quality", 85)
	v.SetDefault("media.sound.urltemplate", DefaultSoundURLTemplate)
	v.SetDefault("media.sound.verify", true)

	v.SetDefault("deck.name", "Birds of Israel")
	v.SetDefault("deck.id", DefaultDeckID)
	v.SetDefault("deck.modelid", DefaultModelID)
	v.SetDefault("deck.modelname", "Bird Card")
	v.SetDefault("deck.outputdir", ".")
	v.SetDefault("deck.filename", "Birds_of_Israel.apkg")
	v.SetDefault("deck.familydir", "decks")
	v.SetDefault("deck.fileprefix", "Birds_of_Israel")
	v.SetDefault("deck.minfamilynotes", 3)
	v.SetDefault("deck.unknownfamily", "UnknownFamily")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/birddeck.log")
	v.SetDefault("logging.file.level", "")
	v.SetDefault("logging.file.maxsize", 50)
	v.SetDefault("logging.file.maxage", 30)
	v.SetDefault("logging.file.maxbackups", 5)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.textfile", "")
}
