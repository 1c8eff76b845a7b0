package model

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
