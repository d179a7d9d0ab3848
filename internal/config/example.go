package config

// ExampleConfig is written by "procwatch config init"
const ExampleConfig = `# procwatch configuration
#
# Durations accept <n>h, <n>m, <n>s or a bare number of milliseconds.

monitor_settings:
  # Process to watch (executable name)
  process_name: notepad.exe
  # Warn again every time a process has run this long since the last warning
  timeout_warning_interval: 15m
  # Poll interval while processes are tracked
  monitor_loop_interval: 1s

wait_process_settings:
  # Give up (exit 1) when the process has not started after this long
  max_wait_time: 30s
  # Poll interval while waiting for the process to start
  wait_process_check_interval: 1s

push_settings:
  # Notification templates. Available variables:
  #   {host_name} {current_time} {short_current_time}  all templates
  #   {process_name}                                   all templates
  #   {process_pid} {process_run_time}                 end, timeout warning
  #   {other_running_processes}                        end, timeout warning, wait timeout
  #   {process_wait_time} {process_list}               wait timeout
  #   {external_program_name} {external_program_path}  external program
  # Use {{ and }} for literal braces.
  push_templates:
    process_end_notification:
      enable: true
      title: Process ended
      content: |+
        Host: {host_name}

        Time: {current_time}

        Process: {process_name} (PID: {process_pid}) ended at {short_current_time}

        Run time: {process_run_time}

    process_timeout_warning:
      enable: true
      title: Process running too long
      content: |+
        Host: {host_name}

        Time: {current_time}

        Process: {process_name} (PID: {process_pid}) has been running longer than expected at {short_current_time}: {process_run_time}

    process_wait_timeout_warning:
      enable: true
      title: Process did not start
      content: |+
        Host: {host_name}

        Time: {current_time}

        Process: {process_name} did not start in time

        Waited: {process_wait_time}

    external_program_execution_notification:
      enable: false
      title: External program executed
      content: |+
        Host: {host_name}

        Time: {current_time}

        External program executed:

        Name: {external_program_name}

        Path: {external_program_path}

  push_channel_settings:
    # ServerChan or OnePush
    choose: ServerChan
    serverchan_key: ""
    # OnePush provider: bark, dingtalk, wechatworkbot or webhook
    push_channel: ""
    # Bark device key, DingTalk access token, WeCom bot key or webhook URL
    push_channel_key: ""

  push_error_retry:
    # Pause between delivery attempts
    retry_interval: 3s
    # Total delivery attempts before giving up (exit 1)
    max_retry_count: 3
    # Deadline for a single attempt
    send_timeout: 10s

external_program_settings:
  # Launched when a tracked process ends (empty = disabled)
  external_program_path: ""
  # Launched every timeout_count_threshold timeout warnings (empty = disabled)
  another_external_program_path: ""
  timeout_count_threshold: 3
  # Launched when the process never started (empty = disabled)
  external_program_on_wait_timeout_path: ""
  # Stop monitoring (exit 0) once the timeout program has been launched
  exit_after_external_program: false

log_settings:
  enable_log_file: false
  # DEBUG, INFO, WARNING or ERROR
  log_level: INFO
  log_directory: logs
  log_filename: procwatch
  # text or json
  log_format: text

metrics_settings:
  # Serve /metrics, /status and /healthz on this address (empty = disabled)
  listen_address: ""
  # Write Prometheus text metrics here on exit (empty = disabled)
  textfile_path: ""
`
