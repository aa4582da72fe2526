package domain

// MovieImages описывает изображения фильма, заданные относительными путями TMDB.
type MovieImages struct {
	ID           string `json:"id"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

// PosterJobID и BackdropJobID формируют идентификаторы задач пакета для фильма.
func PosterJobID(movieID string) string {
	return movieID + "_poster"
}

func BackdropJobID(movieID string) string {
	return movieID + "_backdrop"
}
