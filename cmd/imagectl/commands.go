package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/spf13/cobra"
)

// ucBuilder откладывает сборку конвейера до запуска подкоманды, чтобы --help работал без конфигурации.
type ucBuilder func() (usecase.ImageUC, error)

func newRootCmd(build ucBuilder) *cobra.Command {
	root := &cobra.Command{
		Use:           "imagectl",
		Short:         "Обработка изображений TMDB и выдача URL вариантов из объектного хранилища",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newProcessCmd(build),
		newGetCmd(build),
		newBatchCmd(build),
		newResponsiveCmd(build),
		newMoviesCmd(build),
	)
	return root
}

func newProcessCmd(build ucBuilder) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Создать все размеры категории и вывести их URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			uc, err := build()
			if err != nil {
				return err
			}

			variants, err := uc.ProcessImage(cmd.Context(), usecase.NewProcessImageReq(args[0], c))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), variants)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(domain.CategoryPoster), "poster, profile или backdrop")
	return cmd
}

func newGetCmd(build ucBuilder) *cobra.Command {
	var category, size string

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Вывести URL одного размера, при необходимости создав варианты",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			uc, err := build()
			if err != nil {
				return err
			}

			link, err := uc.GetImage(cmd.Context(), usecase.NewGetImageReq(args[0], c, size))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), link)
			return err
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(domain.CategoryPoster), "poster, profile или backdrop")
	cmd.Flags().StringVarP(&size, "size", "s", "", "размер, по умолчанию размер категории")
	return cmd
}

func newBatchCmd(build ucBuilder) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Обработать JSON-массив задач [{\"url\",\"category\",\"id\"}] из файла или stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var items []domain.BatchItem
			if err := readJSON(cmd.InOrStdin(), file, &items); err != nil {
				return err
			}
			if len(items) == 0 {
				return e.ErrNoImages
			}
			for i := range items {
				if c, err := domain.ParseCategory(string(items[i].Category)); err == nil {
					items[i].Category = c
				}
			}

			uc, err := build()
			if err != nil {
				return err
			}

			results := uc.BatchProcessImages(cmd.Context(), items)
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return failedCount(results)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "файл с задачами, '-' для stdin")
	return cmd
}

func newResponsiveCmd(build ucBuilder) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "responsive <url>",
		Short: "Вывести URL по точкам адаптивной вёрстки",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			uc, err := build()
			if err != nil {
				return err
			}

			set, err := uc.ResponsiveImageURLs(cmd.Context(), usecase.NewProcessImageReq(args[0], c))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), set)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(domain.CategoryPoster), "poster, profile или backdrop")
	return cmd
}

func newMoviesCmd(build ucBuilder) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "movies",
		Short: "Обработать постеры и фоны фильмов [{\"id\",\"poster_path\",\"backdrop_path\"}]",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var movies []domain.MovieImages
			if err := readJSON(cmd.InOrStdin(), file, &movies); err != nil {
				return err
			}
			if len(movies) == 0 {
				return e.ErrNoImages
			}

			uc, err := build()
			if err != nil {
				return err
			}

			results := uc.ProcessMovieImages(cmd.Context(), movies...)
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return failedCount(results)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "файл со списком фильмов, '-' для stdin")
	return cmd
}

func readJSON(stdin io.Reader, file string, dst any) error {
	r := stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", e.ErrStatusBadRequest, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failedCount превращает неуспешные задачи в ненулевой код выхода.
func failedCount(results map[string]domain.BatchItemResult) error {
	var failed []string
	for id, res := range results {
		if !res.Success {
			failed = append(failed, id)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d items failed: %s", len(failed), len(results), strings.Join(failed, ", "))
}
