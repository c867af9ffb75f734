package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/miu200521358/sign-pose-trace/pkg/anim"
	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/player"
	"github.com/miu200521358/sign-pose-trace/pkg/server"
	"github.com/miu200521358/sign-pose-trace/pkg/usecase"
	"github.com/miu200521358/sign-pose-trace/pkg/utils"
	"github.com/miu200521358/sign-pose-trace/pkg/watch"
)

var (
	version  = "0.1.0"
	cfgPath  string
	logLevel string
	dirPath  string
	cfg      *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "signtrace",
		Short:             "Retarget pose landmarks onto a rigged avatar's arms",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ./signtrace.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "logLevel", "", "set log level (VERBOSE, DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(convertCmd(), reduceCmd(), playCmd(), serveCmd(), watchCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := mlog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	mlog.SetLevel(level)

	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every landmark json in a directory into motions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert()
		},
	}
	cmd.Flags().StringVar(&dirPath, "dirPath", "", "set directory path")
	cmd.MarkFlagRequired("dirPath")
	return cmd
}

func runConvert() error {
	retargeter, err := usecase.NewRetargeterFromConfig(cfg)
	if err != nil {
		return err
	}

	mlog.I("Unpack json ================")
	allFiles, err := usecase.Unpack(dirPath, cfg.Motion.Fps)
	if err != nil {
		mlog.E("Failed to unpack: %v", err)
		return err
	}

	mlog.I("Rotate Motion ================")
	allRotateMotions := usecase.Rotate(allFiles, retargeter, cfg.Motion.Loop)

	if err := utils.WriteMotions(allRotateMotions, dirPath, "full", "Full", cfg.Motion.Gltf); err != nil {
		return err
	}

	mlog.I("Keyframe Motion ================")
	allKeyMotions := usecase.Keyframes(allRotateMotions, cfg.Motion.MaxKeyframes, cfg.Motion.KeyPoseStride)

	if mlog.IsDebug() {
		utils.WriteMotions(allKeyMotions, dirPath, "keyframe", "Keyframe", false)
	}

	mlog.I("Reduce Motion ================")
	allReduceMotions := usecase.Reduce(allKeyMotions, cfg.Motion.ReduceTolerance)

	if err := utils.WriteMotions(allReduceMotions, dirPath, "reduce", "Reduce", cfg.Motion.Gltf); err != nil {
		return err
	}

	for _, motion := range allReduceMotions {
		usecase.LogReport(motion)
	}

	// complete ファイルを出力する
	completePath := filepath.Join(dirPath, "complete")
	mlog.I("Output Complete File %s", completePath)
	f, err := os.Create(completePath)
	if err != nil {
		mlog.E("Failed to create complete file: %v", err)
		return err
	}
	f.Close()

	mlog.I("Done!")
	return nil
}

func reduceCmd() *cobra.Command {
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce the full motions of a converted directory again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("tolerance") {
				tolerance = cfg.Motion.ReduceTolerance
			}
			return runReduce(tolerance)
		},
	}
	cmd.Flags().StringVar(&dirPath, "dirPath", "", "set directory path")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "reduce tolerance in radians (default from config)")
	cmd.MarkFlagRequired("dirPath")
	return cmd
}

func runReduce(tolerance float64) error {
	allPaths, err := utils.GetFilePaths(dirPath, func(name string) bool {
		return strings.HasSuffix(name, "_full"+usecase.MotionSuffix)
	})
	if err != nil {
		mlog.E("Failed to get motion file paths: %v", err)
		return err
	}
	if len(allPaths) == 0 {
		return fmt.Errorf("no *_full%s in %s", usecase.MotionSuffix, dirPath)
	}

	allPrevMotions, err := utils.ReadMotionFiles(allPaths)
	if err != nil {
		return err
	}
	for _, motion := range allPrevMotions {
		// 出力名は元の名前から付け直す
		motion.Path = strings.TrimSuffix(motion.Path, "_full"+usecase.MotionSuffix) + usecase.MotionSuffix
	}

	mlog.I("Reduce Motion ...")
	allReduceMotions := usecase.Reduce(allPrevMotions, tolerance)

	if err := utils.WriteMotions(allReduceMotions, dirPath, "reduce", "Reduce", cfg.Motion.Gltf); err != nil {
		return err
	}

	mlog.I("Done!")
	return nil
}

func playCmd() *cobra.Command {
	var fps float64

	cmd := &cobra.Command{
		Use:   "play <motion.json>",
		Short: "Sample a motion at a fixed rate and print one pose per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			motion, err := anim.Read(args[0])
			if err != nil {
				return err
			}
			if fps <= 0 {
				fps = motion.Fps
			}
			if fps <= 0 {
				fps = cfg.Motion.Fps
			}

			p, err := player.NewPlayer(motion)
			if err != nil {
				return err
			}

			// ループするモーションも一周分だけ出力する
			ticks := int(p.Duration()*fps) + 1
			enc := json.NewEncoder(cmd.OutOrStdout())
			bones := p.Sample(0)
			for i := 0; i < ticks; i++ {
				if err := enc.Encode(map[string]interface{}{"time": float64(i) / fps, "bones": bones}); err != nil {
					return err
				}
				if p.Finished() {
					break
				}
				bones = p.Advance(1 / fps)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&fps, "fps", 0, "sampling rate (default the motion fps)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live retargeting over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert landmark files as they appear in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(dirPath, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&dirPath, "dirPath", "", "set directory path")
	cmd.MarkFlagRequired("dirPath")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("signtrace v%s\n", version)
			fmt.Printf("layouts: %s\n", strings.Join(model.LayoutNames(), ", "))
		},
	}
}
