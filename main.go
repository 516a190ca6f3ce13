package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datasparq-ai/houston-client/client"
	"github.com/datasparq-ai/houston-client/model"
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.Replace(s, " ", "", -1), ",")
}

func newClient(plan string) *client.Client {
	c, err := client.New(client.Options{Plan: plan})
	if err != nil {
		log.Fatalln(err)
	}
	return c
}

func main() {
	if err := func() (rootCmd *cobra.Command) {

		rootCmd = &cobra.Command{
			Use:   "houston",
			Short: "HOUSTON Client · https://callhouston.io",
			Args:  cobra.ArbitraryArgs,
			Run: func(c *cobra.Command, args []string) {
				s := "[1;38;2;58;145;172m"
				e := "[0m"
				fmt.Println("\n🚀 [1mHOUSTON[0m · Client · https://callhouston.io\nBasic usage:")
				fmt.Printf("  %[1]vhouston save%[2]v [1m--plan plan.yaml%[2]v  [37m# saves a new plan%[2]v\n", s, e)
				fmt.Printf("  %[1]vhouston start%[2]v [1m--plan my-plan%[2]v   [37m# creates and triggers a new mission%[2]v\n", s, e)
				fmt.Printf("  %[1]vhouston help%[2]v                   [37m# shows help for all commands%[2]v\n", s, e)
			},
		}

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			createCmd = &cobra.Command{
				Use:   "version",
				Short: "Print the version number",
				Run: func(c *cobra.Command, args []string) {
					fmt.Println("v0.1.0")
				},
			}
			return
		}())

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			var plan string
			createCmd = &cobra.Command{
				Use:   "save",
				Short: "Save a plan or update an existing plan",
				Run: func(c *cobra.Command, args []string) {
					if err := newClient(plan).SavePlan(); err != nil {
						log.Fatalln(err)
					}
					fmt.Println("Saved plan.")
				},
			}
			createCmd.Flags().StringVarP(&plan, "plan", "p", "", "File path or name of the plan to save")
			createCmd.MarkFlagRequired("plan")
			return
		}())

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			var plan string
			var missionId string
			var stages string
			var ignore string
			var skip string
			createCmd = &cobra.Command{
				Use:   "start",
				Short: "Create a new mission and trigger the first stage(s)",
				Run: func(c *cobra.Command, args []string) {
					id, err := newClient(plan).Start(missionId, splitList(stages), splitList(ignore), splitList(skip), nil)
					if err != nil {
						log.Fatalln(err)
					}
					fmt.Println("New mission started with ID: " + id)
				},
			}
			createCmd.Flags().StringVarP(&plan, "plan", "p", "", "Name or file path of the plan to create a new mission with")
			createCmd.MarkFlagRequired("plan")
			createCmd.Flags().StringVarP(&missionId, "mission-id", "m", "", "Mission ID to assign to the new mission")
			createCmd.Flags().StringVarP(&stages, "stages", "s", "", "Comma separated list of stage names to be used as the starting point for the mission. \nIf not provided, all stages with no upstream stages will be triggered")
			createCmd.Flags().StringVarP(&ignore, "ignore", "i", "", "Comma separated list of stage names to be ignored in the new mission")
			createCmd.Flags().StringVarP(&skip, "skip", "k", "", "Comma separated list of stage names to be skipped in the new mission")
			return
		}())

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			var plan string
			var missionId string
			createCmd = &cobra.Command{
				Use:   "delete",
				Short: "Delete a plan, or a single mission if a mission ID is given",
				Run: func(c *cobra.Command, args []string) {
					if err := newClient(plan).Delete(missionId); err != nil {
						log.Fatalln(err)
					}
				},
			}
			createCmd.Flags().StringVarP(&plan, "plan", "p", "", "Name of the plan")
			createCmd.MarkFlagRequired("plan")
			createCmd.Flags().StringVarP(&missionId, "mission-id", "m", "", "Mission ID to delete")
			return
		}())

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			var plan string
			var missionId string
			var stages string
			var ignoreDependencies bool
			var ignoreDependants bool
			createCmd = &cobra.Command{
				Use:   "trigger",
				Short: "Manually trigger a stage or stages in an in-progress mission",
				Run: func(c *cobra.Command, args []string) {
					houston := newClient(plan)
					for _, s := range splitList(stages) {
						err := houston.Trigger(model.Event{
							Stage:              s,
							MissionId:          missionId,
							IgnoreDependencies: ignoreDependencies,
							IgnoreDependants:   ignoreDependants,
						})
						if err != nil {
							log.Fatalln(err)
						}
					}
				},
			}
			createCmd.Flags().StringVarP(&plan, "plan", "p", "", "Name of the plan")
			createCmd.MarkFlagRequired("plan")
			createCmd.Flags().StringVarP(&missionId, "mission-id", "m", "", "Mission the stages belong to")
			createCmd.MarkFlagRequired("mission-id")
			createCmd.Flags().StringVarP(&stages, "stages", "s", "", "Comma separated list of stage names to trigger")
			createCmd.MarkFlagRequired("stages")
			createCmd.Flags().BoolVar(&ignoreDependencies, "ignore-dependencies", false, "Allow the stages to start regardless of upstream state")
			createCmd.Flags().BoolVar(&ignoreDependants, "ignore-dependants", false, "Ignore all downstream stages, ending the mission early")
			return
		}())

		rootCmd.AddCommand(func() (createCmd *cobra.Command) {
			var plan string
			var stage string
			createCmd = &cobra.Command{
				Use:   "static-fire",
				Short: "Run a single stage in isolation in a new mission",
				Run: func(c *cobra.Command, args []string) {
					if err := newClient(plan).StaticFire(stage); err != nil {
						log.Fatalln(err)
					}
				},
			}
			createCmd.Flags().StringVarP(&plan, "plan", "p", "", "Name of the plan")
			createCmd.MarkFlagRequired("plan")
			createCmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage to trigger")
			createCmd.MarkFlagRequired("stage")
			return
		}())

		for _, verb := range []struct {
			use   string
			short string
			run   func(c *client.Client, missionId string, stages []string) error
		}{
			{"fail", "Force a stage or stages to be marked as failed",
				func(c *client.Client, missionId string, stages []string) error { return c.Fail(missionId, stages) }},
			{"ignore", "Mark stages as ignored; with no stages, ignore every stage",
				func(c *client.Client, missionId string, stages []string) error { return c.Ignore(missionId, stages) }},
			{"skip", "Mark stages as skipped",
				func(c *client.Client, missionId string, stages []string) error { return c.Skip(missionId, stages) }},
		} {
			verb := verb
			rootCmd.AddCommand(func() (createCmd *cobra.Command) {
				var plan string
				var missionId string
				var stages string
				createCmd = &cobra.Command{
					Use:   verb.use,
					Short: verb.short,
					Run: func(c *cobra.Command, args []string) {
						if err := verb.run(newClient(plan), missionId, splitList(stages)); err != nil {
							log.Fatalln(err)
						}
					},
				}
				createCmd.Flags().StringVarP(&plan, "plan", "p", "", "Name of the plan")
				createCmd.MarkFlagRequired("plan")
				createCmd.Flags().StringVarP(&missionId, "mission-id", "m", "", "Mission the stages belong to")
				createCmd.MarkFlagRequired("mission-id")
				createCmd.Flags().StringVarP(&stages, "stages", "s", "", "Comma separated list of stage names")
				return
			}())
		}

		return
	}().Execute(); err != nil {
		log.Panicln(err)
	}
}
