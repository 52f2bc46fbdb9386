package library

import "strings"

var categories = []Category{
	{
		ID:       "textbook",
		Name:     "TEXTBOOK & JOURNALS",
		Keywords: []string{"Textbook", "Journal", "Buku Pegangan", "Buku Pelajaran", "Modul Praktikum", "Penelitian", "Ensiklopedia", "Kamus", "Referensi", "Education", "Buku Teks"},
	},
	{
		ID:       "history",
		Name:     "HISTORY",
		Keywords: []string{"Sejarah", "Historical Fiction", "History", "Biografi", "Autobiografi", "Sosial & Budaya", "Politik", "Filsafat"},
	},
	{
		ID:       "finance",
		Name:     "FINANCE & BUSINESS",
		Keywords: []string{"Ekonomi", "Bisnis & Manajemen", "Finance", "Akuntansi", "Motivasi & Pengembangan Diri", "Keuangan"},
	},
	{
		ID:       "fantasy",
		Name:     "FANTASY",
		Keywords: []string{"Fantasi", "Fantasy", "Fiksi Ilmiah", "Science Fiction", "Dystopian", "Young Adult", "Petualangan", "Misteri", "Thriller", "Horor", "Romansa", "Drama", "Klasik"},
	},
	{
		ID:       "math-science",
		Name:     "MATH & SCIENCE",
		Keywords: []string{"Matematika", "Sains & Teknologi", "Science", "Math", "Teknik Informatika", "IT", "Kedokteran", "Kesehatan", "Farmasi", "Lingkungan", "Alam", "Fisika", "Kimia", "Biologi"},
	},
}

var genres = []string{
	"Novel Umum", "Fiksi Ilmiah", "Fantasi", "Misteri", "Thriller", "Horor",
	"Romansa", "Drama", "Petualangan", "Historical Fiction", "Dystopian",
	"Young Adult", "Children's Fiction", "Satire", "Cyberpunk / Steampunk",

	"Biografi & Autobiografi", "Sejarah", "Politik", "Sosial & Budaya", "Psikologi",
	"Sains & Teknologi", "Matematika", "Ekonomi", "Bisnis & Manajemen", "Hukum",
	"Pendidikan", "Kesehatan & Kedokteran", "Filsafat", "Agama & Spiritual",
	"Lingkungan & Alam", "Kumpulan Esai", "Motivasi & Pengembangan Diri",
	"Parenting", "Jurnalistik / Reportase",

	"Kamus", "Ensiklopedia", "Atlas", "Buku Pegangan", "Buku Statistik",
	"Buku Panduan Akademik",

	"Teknik Informatika / IT", "Teknik Mesin", "Teknik Elektro", "Arsitektur",
	"Pertanian", "Kedokteran", "Keperawatan", "Farmasi", "Akuntansi",

	"Puisi", "Kumpulan Cerita Pendek", "Drama / Naskah Teater", "Klasik Dunia",
	"Karya Sastra Nusantara",

	"Komik / Manga", "Buku Seni & Desain", "Fotografi", "Musik", "Film",
	"Crafting & DIY", "Masak / Resep", "Travel", "Olahraga",

	"Buku Bergambar", "Dongeng & Fabel", "Edukasi Anak", "Cerita Remaja",
	"Komik Anak",

	"Buku Pelajaran", "Modul Praktikum", "Buku Latihan Soal", "Penelitian & Tugas Akhir",
}

// Categories returns the browsing categories.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Genres returns the genre list offered by the genre filter.
func Genres() []string {
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

// FindCategory looks a category up by id.
func FindCategory(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Matches reports whether the book's genre contains one of the keywords,
// ignoring case. Note the short keyword "IT" also matches inside words.
func (c Category) Matches(b Book) bool {
	genre := strings.ToLower(b.Genre)
	for _, kw := range c.Keywords {
		if strings.Contains(genre, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
