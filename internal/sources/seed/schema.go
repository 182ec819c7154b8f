package seed

// Entry is one bookmark in the seed file.
//
//	bookmarks:
//	  - title: Go
//	    url: https://go.dev
//	    owner: 1
//	    public: false
type Entry struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Public      *bool  `yaml:"public"` // defaults to true
	Owner       *int64 `yaml:"owner"`  // nil => unowned
	Favorite    bool   `yaml:"favorite"`
	Rating      *int   `yaml:"rating"`
}

// File is the root structure of the seed YAML
type File struct {
	Bookmarks []Entry `yaml:"bookmarks"`
}
